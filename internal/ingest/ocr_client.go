// Package ingest implements the document ingestion pipeline: OCR, LLM
// extraction, validation, and persistence of uploaded medical documents,
// driven by a durable queue and a bounded worker pool.
package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OCRTimeout bounds a single OCR call, per SPEC_FULL.md §4.4's stage-1
// timeout.
const OCRTimeout = 120 * time.Second

// OCRClient talks to the external document-parsing sidecar. It extracts
// plain text/markdown from an uploaded file; it does not understand
// medical semantics.
type OCRClient struct {
	baseURL string
	client  *http.Client
}

// NewOCRClient builds a client pointed at baseURL (the sidecar's base
// address, e.g. http://localhost:5001).
func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: OCRTimeout},
	}
}

type convertSource struct {
	Kind     string `json:"kind"`
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

type convertRequest struct {
	Sources []convertSource `json:"sources"`
}

// ParseDocument sends file bytes to the sidecar and returns the extracted
// markdown/text. It retries once on a connection-level failure; it never
// retries a 4xx response, since that indicates the file itself is
// unusable.
func (c *OCRClient) ParseDocument(ctx context.Context, filename string, content []byte) (string, error) {
	req := convertRequest{Sources: []convertSource{{
		Kind:     "base64",
		Data:     base64.StdEncoding.EncodeToString(content),
		Filename: filename,
	}}}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode ocr request: %w", err)
	}

	text, err := c.postConvert(ctx, body)
	if err == nil {
		return text, nil
	}
	if _, is4xx := err.(*statusError); is4xx {
		return "", err
	}
	// One retry on a connection-level failure.
	return c.postConvert(ctx, body)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ocr sidecar returned status %d: %s", e.code, e.body)
}

func (c *OCRClient) postConvert(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/convert/source", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ocr sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	text, err := extractMarkdown(respBody)
	if err != nil {
		return "", err
	}
	return text, nil
}

// extractMarkdown walks the sidecar's response looking for extracted
// text under any of several known key names, checking both a
// "documents" array and the top level — the sidecar's response shape
// has varied across versions.
func extractMarkdown(raw []byte) (string, error) {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}

	if docs, ok := parsed["documents"].([]any); ok && len(docs) > 0 {
		if doc, ok := docs[0].(map[string]any); ok {
			if text := firstStringKey(doc, "md_content", "markdown", "output"); text != "" {
				return text, nil
			}
		}
	}
	if text := firstStringKey(parsed, "md_content", "markdown", "output"); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("ocr response carried no extractable text")
}

func firstStringKey(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// HealthStatus reports whether the OCR sidecar is reachable.
type HealthStatus struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck probes the sidecar's liveness endpoint.
func (c *OCRClient) HealthCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthStatus{Error: err.Error()}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return HealthStatus{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return HealthStatus{Error: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return HealthStatus{Reachable: true}
}
