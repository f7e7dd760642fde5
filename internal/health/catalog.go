// Package health implements the health tool catalog: a declarative set of
// read-only query tools the LLM gateway can invoke while answering a user's
// question. Every tool is resolved by name, validates its own arguments,
// and returns a JSON-serializable result. Implementations never mutate the
// store and never make outbound network calls.
package health

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/ai"
)

// Catalog returns the tool definitions, as the gateway's ai.ToolDefinition
// values, for the
// six mandatory health tools. Names, argument schemas, and descriptions
// mirror what the model is told to call.
func Catalog() []ai.ToolDefinition {
	return []ai.ToolDefinition{
		{
			Name: "get_recent_labs",
			Description: "Get recent lab test results for the user: blood work, hormone levels, and other " +
				"medical test results with values, units, and reference ranges. Use this when the user asks " +
				"about their lab results, blood tests, or specific medical markers.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"days": {"type": "integer", "description": "Number of days to look back. Default 90."},
					"test_name": {"type": "string", "description": "Optional: filter by test name (partial match, case-insensitive)."}
				},
				"required": []
			}`),
		},
		{
			Name: "get_lab_trend",
			Description: "Get the historical trend for a specific lab test over time, tracking how a value " +
				"has changed across multiple measurements.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"test_name": {"type": "string", "description": "The lab test name to track (partial match)."},
					"months": {"type": "integer", "description": "Number of months to look back. Default 12."}
				},
				"required": ["test_name"]
			}`),
		},
		{
			Name: "get_symptom_timeline",
			Description: "Get symptom entries logged by the user over a time period, including severity, " +
				"duration, and triggers.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"symptom_type": {"type": "string", "description": "Optional: filter by symptom type (exact match)."},
					"days": {"type": "integer", "description": "Number of days to look back. Default 30."}
				},
				"required": []
			}`),
		},
		{
			Name:        "get_wearable_summary",
			Description: "Get wearable device data for a specific health metric: aggregated statistics and daily buckets.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"metric": {"type": "string", "description": "The metric code, e.g. resting_heart_rate, sleep_duration, steps, hrv, active_calories."},
					"days": {"type": "integer", "description": "Number of days to look back. Default 30."}
				},
				"required": ["metric"]
			}`),
		},
		{
			Name:        "get_daily_summary",
			Description: "Get a combined snapshot of all health data for a specific date: symptoms, labs drawn, and wearable aggregates.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "Date in YYYY-MM-DD format."}
				},
				"required": ["date"]
			}`),
		},
		{
			Name: "correlate_metrics",
			Description: "Find correlations between two health metrics over time using the Pearson coefficient. " +
				"Prefix symptom types with 'symptom:' (e.g. 'symptom:migraine') and lab tests with 'lab:' " +
				"(e.g. 'lab:HbA1c'). Wearable metrics use their code directly (e.g. 'resting_heart_rate').",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"metric_a": {"type": "string", "description": "First metric."},
					"metric_b": {"type": "string", "description": "Second metric."},
					"days": {"type": "integer", "description": "Number of days to look back. Default 90."}
				},
				"required": ["metric_a", "metric_b"]
			}`),
		},
	}
}

// Dispatcher resolves a tool name to an implementation bound to one user
// and executes it against the store.
type Dispatcher struct {
	db *gorm.DB
}

// NewDispatcher builds a Dispatcher over db. The returned value's Execute
// method satisfies ai.ToolExecutor once bound to a user via Bind.
func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

// Bind returns an ai.ToolExecutor closure scoped to userID, suitable for
// passing directly to ai.Gateway.ChatWithTools.
func (d *Dispatcher) Bind(userID string) ai.ToolExecutor {
	return func(ctx context.Context, name, arguments string) (string, error) {
		return d.Execute(ctx, userID, name, arguments), nil
	}
}

// Execute resolves name to an implementation and returns its JSON result.
// Unknown names and argument-validation failures are reported as JSON
// error payloads, never as a Go error — a Go error here would be fatal to
// the tool loop, and per SPEC_FULL.md these are recoverable, model-visible
// conditions.
func (d *Dispatcher) Execute(ctx context.Context, userID, name, arguments string) string {
	var args map[string]json.RawMessage
	if len(arguments) > 0 {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return errorResult("invalid_arguments", err.Error())
		}
	}

	switch name {
	case "get_recent_labs":
		return d.getRecentLabs(ctx, userID, args)
	case "get_lab_trend":
		return d.getLabTrend(ctx, userID, args)
	case "get_symptom_timeline":
		return d.getSymptomTimeline(ctx, userID, args)
	case "get_wearable_summary":
		return d.getWearableSummary(ctx, userID, args)
	case "get_daily_summary":
		return d.getDailySummary(ctx, userID, args)
	case "correlate_metrics":
		return d.correlateMetrics(ctx, userID, args)
	default:
		return errorResult("unknown_tool", "")
	}
}

func errorResult(code, detail string) string {
	payload := map[string]string{"error": code}
	if detail != "" {
		payload["detail"] = detail
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult("encode_failed", err.Error())
	}
	return string(b)
}

// argInt reads an optional integer argument, falling back to def when
// absent or unparsable.
func argInt(args map[string]json.RawMessage, key string, def int) int {
	raw, ok := args[key]
	if !ok {
		return def
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

// argString reads an optional string argument, returning "" when absent.
func argString(args map[string]json.RawMessage, key string) string {
	raw, ok := args[key]
	if !ok {
		return ""
	}
	var v string
	_ = json.Unmarshal(raw, &v)
	return v
}
