package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

type symptomEntryView struct {
	SymptomType     string  `json:"symptom_type"`
	Severity        int     `json:"severity"`
	Notes           *string `json:"notes,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Triggers        *string `json:"triggers,omitempty"`
	RecordedAt      string  `json:"recorded_at"`
}

type symptomFrequency struct {
	Count       int     `json:"count"`
	AvgSeverity float64 `json:"avg_severity"`
	MaxSeverity int     `json:"max_severity"`
}

func (d *Dispatcher) getSymptomTimeline(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	days := argInt(args, "days", 30)
	symptomType := argString(args, "symptom_type")
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	rows, err := repo.ListSymptomEntriesInRange(ctx, d.db, userID, symptomType, since, now)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}

	entries := make([]symptomEntryView, 0, len(rows))
	freq := map[string]*symptomFrequency{}
	for _, r := range rows {
		entries = append(entries, symptomEntryView{
			SymptomType:     r.SymptomType,
			Severity:        r.Severity,
			Notes:           r.Notes,
			DurationMinutes: r.DurationMinutes,
			Triggers:        r.Triggers,
			RecordedAt:      r.RecordedAt.UTC().Format(time.RFC3339),
		})

		f, ok := freq[r.SymptomType]
		if !ok {
			f = &symptomFrequency{}
			freq[r.SymptomType] = f
		}
		f.Count++
		f.AvgSeverity += float64(r.Severity)
		if r.Severity > f.MaxSeverity {
			f.MaxSeverity = r.Severity
		}
	}
	for _, f := range freq {
		if f.Count > 0 {
			f.AvgSeverity = round3(f.AvgSeverity / float64(f.Count))
		}
	}

	// Newest first, matching the other read-tools' ordering convention.
	reversed := make([]symptomEntryView, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	return toJSON(map[string]any{
		"period_days": days,
		"count":       len(entries),
		"entries":     reversed,
		"frequency":   freq,
	})
}
