package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-chat-backend/internal/ai"
)

// ExtractionTimeout bounds a single extraction call, per SPEC_FULL.md
// §4.4's stage-2 timeout.
const ExtractionTimeout = 180 * time.Second

const extractionSystemPrompt = `You extract structured lab results from raw medical document text.
Respond with a single JSON object of the exact shape:
{"results": [{"test_name": "...", "test_code": "...", "value": 0.0, "unit": "...", "reference_min": 0.0, "reference_max": 0.0, "status": "normal|high|low|critical", "recorded_at": "YYYY-MM-DD"}]}
Omit any field you cannot determine except test_name, value, unit, and recorded_at, which are required.
Respond with JSON only, no prose, no markdown fences.`

const extractionReinforcementPrompt = `Your previous response was not valid JSON. Respond again with ONLY the JSON object described, and nothing else — no markdown fences, no commentary.`

// ExtractedLabResult is one lab result as returned by the extraction
// model, before validation.
type ExtractedLabResult struct {
	TestName     string   `json:"test_name"`
	TestCode     string   `json:"test_code,omitempty"`
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit"`
	ReferenceMin *float64 `json:"reference_min,omitempty"`
	ReferenceMax *float64 `json:"reference_max,omitempty"`
	Status       string   `json:"status,omitempty"`
	RecordedAt   string   `json:"recorded_at"`
}

type extractionResponse struct {
	Results []ExtractedLabResult `json:"results"`
}

// Extractor runs the document-extraction stage: it asks the LLM gateway
// to turn raw OCR text into structured lab results.
type Extractor struct {
	gateway *ai.Gateway
}

// NewExtractor builds an Extractor over gateway.
func NewExtractor(gateway *ai.Gateway) *Extractor {
	return &Extractor{gateway: gateway}
}

// Extract parses rawText into a slice of lab results. On a JSON parse
// failure it retries once with a reinforcement message; a second failure
// fails the stage.
func (e *Extractor) Extract(ctx context.Context, rawText string) ([]ExtractedLabResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ExtractionTimeout)
	defer cancel()

	messages := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: extractionSystemPrompt},
		{Role: ai.RoleUser, Content: rawText},
	}

	results, err := e.tryExtract(ctx, messages)
	if err == nil {
		return results, nil
	}

	messages = append(messages,
		ai.ChatMessage{Role: ai.RoleAssistant, Content: err.rawResponse},
		ai.ChatMessage{Role: ai.RoleUser, Content: extractionReinforcementPrompt},
	)
	results, retryErr := e.tryExtract(ctx, messages)
	if retryErr != nil {
		return nil, fmt.Errorf("extraction: model did not return valid JSON after retry: %w", retryErr)
	}
	return results, nil
}

// extractError carries the raw model response alongside the parse
// failure so it can be echoed back in the retry prompt.
type extractError struct {
	rawResponse string
	cause       error
}

func (e *extractError) Error() string { return e.cause.Error() }
func (e *extractError) Unwrap() error { return e.cause }

func (e *Extractor) tryExtract(ctx context.Context, messages []ai.ChatMessage) ([]ExtractedLabResult, *extractError) {
	text, err := e.gateway.Chat(ctx, messages, e.gateway.ExtractionModel(), ai.Options{Temperature: 0})
	if err != nil {
		return nil, &extractError{rawResponse: "", cause: err}
	}

	var parsed extractionResponse
	if jsonErr := json.Unmarshal([]byte(stripFences(text)), &parsed); jsonErr != nil {
		return nil, &extractError{rawResponse: text, cause: jsonErr}
	}
	return parsed.Results, nil
}

// stripFences removes a leading/trailing markdown code fence some models
// wrap JSON responses in despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
