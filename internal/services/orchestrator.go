package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/ai"
	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/health"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// maxHistoryMessages bounds how many prior turns are replayed into the
// model's context window on every send.
const maxHistoryMessages = 50

// autoTitleMaxLen matches SessionService's default TitleMaxLen, so a
// title auto-filled from the first message is clipped the same way an
// explicit one would be.
const autoTitleMaxLen = 80

// systemPromptTemplate is the assistant's persona. {today} is substituted
// with the current UTC date before every send so the model reasons about
// "today"/"this week" against the right calendar day.
const systemPromptTemplate = `You are a knowledgeable and empathetic health assistant helping the user
understand their own health data: lab results, symptom history, wearable
metrics, and daily summaries.

You have access to tools that query the user's locally stored health
records. Use them whenever a question could be answered more precisely
by looking at real data rather than guessing.

Guidelines:
1. Always use a tool rather than speculating when the user asks about
   specific numbers, trends, or dates.
2. Be specific: cite the values, units, and dates a tool returns.
3. Highlight results outside a reference range or a notable trend.
4. Be honest about the limits of what the data shows. You are not a
   doctor, and nothing here is a diagnosis.
5. This assistant runs entirely on the user's own machine; their health
   data never leaves it.
6. Be concise. Answer the question asked before adding extra context.

Never diagnose a condition, recommend a medication or dosage, or tell
the user to ignore a concerning symptom or an out-of-range lab value.
For any of those, say the user should talk to a healthcare professional.

Today's date is {today}.`

// Orchestrator drives one chat turn end to end: persisting the user
// message, assembling the model-visible conversation (including replayed
// tool-call context from prior turns), streaming the model's response
// through the health tool catalog, and persisting the assistant's reply.
type Orchestrator struct {
	DB         *gorm.DB
	Gateway    *ai.Gateway
	Dispatcher *health.Dispatcher
	Model      string

	MaxMessageRunes int
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(db *gorm.DB, gateway *ai.Gateway, dispatcher *health.Dispatcher, model string) *Orchestrator {
	return &Orchestrator{
		DB:              db,
		Gateway:         gateway,
		Dispatcher:      dispatcher,
		Model:           model,
		MaxMessageRunes: 8000,
	}
}

// Send runs the full 7-step message-send sequence for one prompt, emitting
// one ai.Event at a time on the returned channel. The channel is closed
// when the turn ends, whether by a "done"/"error" event or by ctx
// cancellation. Callers must drain the channel to completion or cancel
// ctx to let the goroutine exit.
func (o *Orchestrator) Send(ctx context.Context, userID, sessionID, prompt string) (<-chan ai.Event, error) {
	prompt = strings.TrimSpace(prompt)
	runeLen := len([]rune(prompt))
	if runeLen == 0 {
		return nil, ErrEmptyMessage
	}
	if o.MaxMessageRunes > 0 && runeLen > o.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	sess, err := o.getSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Title == nil {
		if title := autoTitleFromPrompt(prompt); title != "" {
			if err := repo.UpdateChatSessionTitle(ctx, o.DB, sessionID, userID, title); err != nil {
				return nil, err
			}
		}
	}

	if err := repo.StartStream(ctx, o.DB, sessionID); err != nil {
		if errors.Is(err, repo.ErrStreamAlreadyActive) {
			return nil, ErrStreamConflict
		}
		return nil, err
	}

	if _, err := repo.AppendMessage(ctx, o.DB, sessionID, domain.RoleUser, prompt, nil); err != nil {
		repo.EndStream(ctx, o.DB, sessionID)
		return nil, err
	}

	conversation, err := o.buildConversation(ctx, sessionID)
	if err != nil {
		repo.EndStream(ctx, o.DB, sessionID)
		return nil, err
	}

	out := make(chan ai.Event)
	go o.run(ctx, sessionID, userID, conversation, out)
	return out, nil
}

// run drives the gateway stream, re-emits every event to out, and
// persists the assistant's reply once the turn concludes. It always ends
// the active-stream marker and closes out before returning.
func (o *Orchestrator) run(ctx context.Context, sessionID, userID string, conversation []ai.ChatMessage, out chan<- ai.Event) {
	defer close(out)
	defer repo.EndStream(context.Background(), o.DB, sessionID)

	var content string
	var toolCalls []domain.ToolCallRecord
	pendingArgs := map[string]string{}
	reachedDone := false

	events := o.Gateway.ChatWithTools(ctx, conversation, health.Catalog(), o.Model, o.Dispatcher.Bind(userID), ai.Options{})
	for ev := range events {
		switch ev.Kind {
		case ai.EventContent:
			content += ev.Content
		case ai.EventToolCall:
			pendingArgs[ev.Name] = string(ev.Arguments)
		case ai.EventToolResult:
			args := pendingArgs[ev.Name]
			delete(pendingArgs, ev.Name)
			toolCalls = append(toolCalls, domain.ToolCallRecord{
				Name:      ev.Name,
				Arguments: args,
				Result:    ev.Result,
			})
		case ai.EventDone:
			reachedDone = true
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			o.persistPartial(context.Background(), sessionID, content, toolCalls, reachedDone)
			return
		}
	}

	o.persistPartial(context.Background(), sessionID, content, toolCalls, reachedDone)
}

// persistPartial writes the assistant's reply once the turn is over. A
// message is only written if the turn reached a "done" event; any error or
// cancellation before that — even after partial content or a tool call —
// persists nothing, so a failed turn never leaves a half-written assistant
// row behind.
func (o *Orchestrator) persistPartial(ctx context.Context, sessionID, content string, toolCalls []domain.ToolCallRecord, reachedDone bool) {
	if !reachedDone {
		return
	}

	var metadata *string
	if len(toolCalls) > 0 {
		encoded, err := json.Marshal(domain.MessageMetadata{ToolCalls: toolCalls})
		if err == nil {
			s := string(encoded)
			metadata = &s
		}
	}

	repo.AppendMessage(ctx, o.DB, sessionID, domain.RoleAssistant, content, metadata)
}

// buildConversation assembles the model-visible history: the system
// persona message, followed by up to maxHistoryMessages prior turns in
// order. Assistant messages that recorded tool calls in Metadata are
// expanded back into an assistant tool-call turn plus one tool-role
// message per call, so the model sees the same tool context it produced
// originally without those rows having been persisted as their own
// messages.
func (o *Orchestrator) buildConversation(ctx context.Context, sessionID string) ([]ai.ChatMessage, error) {
	rows, err := repo.ListMessages(ctx, o.DB, sessionID, maxHistoryMessages)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	prompt := strings.ReplaceAll(systemPromptTemplate, "{today}", today)

	conversation := make([]ai.ChatMessage, 0, len(rows)+1)
	conversation = append(conversation, ai.ChatMessage{Role: domain.RoleSystem, Content: prompt})

	for _, m := range rows {
		if m.Role == domain.RoleAssistant && m.Metadata != nil {
			var meta domain.MessageMetadata
			if err := json.Unmarshal([]byte(*m.Metadata), &meta); err == nil && len(meta.ToolCalls) > 0 {
				calls := make([]ai.ToolCall, len(meta.ToolCalls))
				for i, tc := range meta.ToolCalls {
					calls[i] = ai.ToolCall{ID: fmt.Sprintf("%s-%d", m.ID, i), Name: tc.Name, Arguments: tc.Arguments}
				}
				conversation = append(conversation, ai.ChatMessage{Role: domain.RoleAssistant, Content: m.Content, ToolCalls: calls})
				for i, tc := range meta.ToolCalls {
					conversation = append(conversation, ai.ChatMessage{Role: domain.RoleTool, Content: tc.Result, ToolCallID: calls[i].ID})
				}
				continue
			}
		}
		conversation = append(conversation, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	return conversation, nil
}

// autoTitleFromPrompt derives a session title from a user's first message,
// normalizing whitespace the same way an explicit title is and clipping to
// autoTitleMaxLen runes.
func autoTitleFromPrompt(prompt string) string {
	t := normalizeTitle(prompt)
	if utf8.RuneCountInString(t) > autoTitleMaxLen {
		return string([]rune(t)[:autoTitleMaxLen])
	}
	return t
}

func (o *Orchestrator) getSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := repo.GetChatSession(ctx, o.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}
