// Package ai implements the LLM gateway: a single stateless adapter to a
// locally-hosted, OpenAI-compatible inference server. It is the only place
// in the system that speaks the inference protocol; callers deal only in
// ChatMessage, ToolDefinition, and Event values.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds the tool-calling loop in ChatWithTools. Exceeding it
// terminates the loop with a tool_loop_exhausted error event.
const maxToolRounds = 8

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is the gateway's wire-agnostic view of one turn. Assistant
// turns that triggered tool calls carry ToolCalls; tool turns carry the
// ToolCallID they answer.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall names a function the model asked to invoke and the raw JSON
// arguments it supplied.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDefinition is a catalog entry: a stable name, a human-readable
// description for the model, and a JSON-Schema describing its arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolExecutor invokes a named tool with its raw JSON arguments string and returns
// a JSON-serializable result string. It must not block indefinitely; the
// gateway does not apply its own per-call timeout to executor invocations.
type ToolExecutor func(ctx context.Context, name, arguments string) (string, error)

// Options carries per-call generation parameters. The zero value lets the
// inference server apply its own defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// EventKind identifies the shape of an Event.
type EventKind string

const (
	EventContent    EventKind = "content"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventDone       EventKind = "done"
	EventError      EventKind = "error"
)

// Event is one item in the lazy sequence chat_with_tools produces. Only the
// fields relevant to Kind are populated; the shape matches the transport's
// wire envelope directly so callers can serialize it without translation.
type Event struct {
	Kind      EventKind       `json:"type"`
	Content   string          `json:"content,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    string          `json:"result,omitempty"`
	Reason    string          `json:"error,omitempty"`
}

// HealthStatus is the result of a health_check probe.
type HealthStatus struct {
	Reachable                 bool     `json:"reachable"`
	InstalledModels           []string `json:"installed_models"`
	ConfiguredChatModel       string   `json:"configured_chat_model"`
	ConfiguredExtractionModel string   `json:"configured_extraction_model"`
	Error                     string   `json:"error,omitempty"`
}

// Gateway is a single stateless client bound to one inference server.
type Gateway struct {
	client          *openai.Client
	chatModel       string
	extractionModel string
	timeout         time.Duration
}

// NewGateway builds a Gateway pointed at baseURL, an OpenAI-compatible
// chat-completion endpoint. apiKey may be empty for inference servers that
// do not require one; go-openai still requires a non-empty string.
func NewGateway(baseURL, apiKey, chatModel, extractionModel string, timeout time.Duration) *Gateway {
	if apiKey == "" {
		apiKey = "not-needed"
	}
	occ := openai.DefaultConfig(apiKey)
	occ.BaseURL = baseURL
	return &Gateway{
		client:          openai.NewClientWithConfig(occ),
		chatModel:       chatModel,
		extractionModel: extractionModel,
		timeout:         timeout,
	}
}

// ExtractionModel returns the model configured for the document-extraction
// stage, distinct from the chat model used for conversational turns.
func (g *Gateway) ExtractionModel() string { return g.extractionModel }

// HealthCheck probes the inference server's model-listing endpoint with a
// short timeout. It never returns an error; unreachability is reported in
// the returned status.
func (g *Gateway) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		ConfiguredChatModel:       g.chatModel,
		ConfiguredExtractionModel: g.extractionModel,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := g.client.ListModels(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.ID)
	}
	status.Reachable = true
	status.InstalledModels = models
	return status
}

// Chat performs a non-streaming completion and returns the full assistant
// text. Used by the document-extraction stage.
func (g *Gateway) Chat(ctx context.Context, messages []ChatMessage, model string, opts Options) (string, error) {
	if model == "" {
		model = g.chatModel
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	applyOptions(&req, opts)

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("inference chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("inference chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChunk is one item yielded by ChatStream. The final chunk has
// Done set (with Delta empty), or Err set if the stream failed.
type StreamChunk struct {
	Delta string
	Done  bool
	Err   error
}

// ChatStream performs a streaming completion without tools. The returned
// channel is closed after the terminal chunk (Done or Err) is sent.
func (g *Gateway) ChatStream(ctx context.Context, messages []ChatMessage, model string, opts Options) <-chan StreamChunk {
	out := make(chan StreamChunk)
	if model == "" {
		model = g.chatModel
	}

	go func() {
		defer close(out)

		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		req := openai.ChatCompletionRequest{
			Model:    model,
			Messages: toOpenAIMessages(messages),
		}
		applyOptions(&req, opts)

		stream, err := g.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			sendChunk(ctx, out, StreamChunk{Err: err})
			return
		}
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				sendChunk(ctx, out, StreamChunk{Done: true})
				return
			}
			if err != nil {
				sendChunk(ctx, out, StreamChunk{Err: err})
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !sendChunk(ctx, out, StreamChunk{Delta: delta}) {
				return
			}
		}
	}()

	return out
}

// accumulatingCall builds up one streamed tool call from its incremental
// deltas: the inference server may fragment the function name and the JSON
// arguments across several stream chunks, indexed by tool-call position.
type accumulatingCall struct {
	id        string
	name      string
	arguments strings.Builder
}

// ChatWithTools is the core primitive for grounded chat. See the package
// doc and SPEC_FULL.md §4.2 for the exact per-iteration contract: send
// messages+tools, stream content and tool-call deltas, execute any tool
// calls synchronously via executor, append the results, and loop — up to
// maxToolRounds — until the model stops emitting tool calls.
func (g *Gateway) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, model string, executor ToolExecutor, opts Options) <-chan Event {
	out := make(chan Event)
	if model == "" {
		model = g.chatModel
	}
	oaiTools := toOpenAITools(tools)

	go func() {
		defer close(out)

		conversation := append([]ChatMessage(nil), messages...)

		for round := 0; round < maxToolRounds; round++ {
			if g.runOneRound(ctx, out, &conversation, oaiTools, model, executor, opts) != roundContinue {
				return
			}
		}

		emit(ctx, out, Event{Kind: EventError, Reason: "tool_loop_exhausted"})
	}()

	return out
}

// roundOutcome tells the ChatWithTools loop whether to run another
// iteration or stop; a terminal or error event has already been emitted
// by the time roundStop is returned.
type roundOutcome int

const (
	roundContinue roundOutcome = iota
	roundStop
)

// runOneRound executes one iteration of the tool-calling loop.
func (g *Gateway) runOneRound(ctx context.Context, out chan<- Event, conversation *[]ChatMessage, tools []openai.Tool, model string, executor ToolExecutor, opts Options) roundOutcome {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(*conversation),
		Tools:    tools,
	}
	applyOptions(&req, opts)

	stream, err := g.client.CreateChatCompletionStream(callCtx, req)
	if err != nil {
		emit(ctx, out, Event{Kind: EventError, Reason: err.Error()})
		return roundStop
	}
	defer stream.Close()

	var contentBuf strings.Builder
	calls := map[int]*accumulatingCall{}
	var order []int

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			emit(ctx, out, Event{Kind: EventError, Reason: recvErr.Error()})
			return roundStop
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			contentBuf.WriteString(delta.Content)
			if !emit(ctx, out, Event{Kind: EventContent, Content: delta.Content}) {
				return roundStop
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := calls[idx]
			if !ok {
				acc = &accumulatingCall{}
				calls[idx] = acc
				order = append(order, idx)
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name += tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				acc.arguments.WriteString(tc.Function.Arguments)
			}
		}
	}

	if len(order) == 0 {
		emit(ctx, out, Event{Kind: EventDone})
		return roundStop
	}

	assistantCalls := make([]ToolCall, 0, len(order))
	for _, idx := range order {
		acc := calls[idx]
		args := acc.arguments.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		if !emit(ctx, out, Event{Kind: EventToolCall, Name: acc.name, Arguments: json.RawMessage(args)}) {
			return roundStop
		}
		assistantCalls = append(assistantCalls, ToolCall{ID: acc.id, Name: acc.name, Arguments: args})
	}

	*conversation = append(*conversation, ChatMessage{
		Role:      RoleAssistant,
		Content:   contentBuf.String(),
		ToolCalls: assistantCalls,
	})

	for _, tc := range assistantCalls {
		resultStr := runTool(ctx, executor, tc)
		if !emit(ctx, out, Event{Kind: EventToolResult, Name: tc.Name, Result: resultStr}) {
			return roundStop
		}
		*conversation = append(*conversation, ChatMessage{
			Role:       RoleTool,
			Content:    resultStr,
			ToolCallID: tc.ID,
		})
	}

	return roundContinue
}

// runTool executes one tool call, translating malformed-argument JSON and
// executor failures into a tool result rather than a fatal error — per
// SPEC_FULL.md §4.2, these are fed back to the model, which is expected to
// self-correct.
func runTool(ctx context.Context, executor ToolExecutor, tc ToolCall) string {
	var probe json.RawMessage
	if err := json.Unmarshal([]byte(tc.Arguments), &probe); err != nil {
		payload, _ := json.Marshal(map[string]string{
			"error":  "invalid_arguments",
			"detail": err.Error(),
		})
		return string(payload)
	}

	result, err := executor(ctx, tc.Name, tc.Arguments)
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(payload)
	}
	return result
}

func applyOptions(req *openai.ChatCompletionRequest, opts Options) {
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		req.MaxTokens = opts.MaxTokens
	}
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		if len(m.ToolCalls) > 0 {
			calls := make([]openai.ToolCall, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			msg.ToolCalls = calls
		}
		if m.Role == RoleTool {
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(defs []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		var params any
		if len(d.Parameters) > 0 {
			_ = json.Unmarshal(d.Parameters, &params)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// emit sends ev to out, respecting cancellation. It reports whether the
// send succeeded; a false result means the caller disconnected and the
// loop should stop without emitting anything further.
func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func sendChunk(ctx context.Context, out chan<- StreamChunk, c StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
