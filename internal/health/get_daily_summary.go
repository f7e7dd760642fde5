package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

func (d *Dispatcher) getDailySummary(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	dateStr := argString(args, "date")
	if dateStr == "" {
		return errorResult("invalid_arguments", "date is required")
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return errorResult("invalid_arguments", "date must be YYYY-MM-DD")
	}
	dayStart := day.UTC()
	dayEnd := dayStart.Add(24 * time.Hour)

	labs, err := repo.ListLabResultsRecent(ctx, d.db, userID, dayStart, "", 0)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}
	labsToday := make([]labResultView, 0)
	for _, r := range labs {
		ru := r.RecordedAt.UTC()
		if ru.Before(dayStart) || !ru.Before(dayEnd) {
			continue
		}
		labsToday = append(labsToday, labResultView{
			TestName:     r.TestName,
			TestCode:     r.TestCode,
			Value:        r.Value,
			Unit:         r.Unit,
			ReferenceMin: r.ReferenceMin,
			ReferenceMax: r.ReferenceMax,
			Status:       r.Status,
			RecordedAt:   ru.Format(time.RFC3339),
		})
	}

	symptoms, err := repo.ListSymptomEntriesInRange(ctx, d.db, userID, "", dayStart, dayEnd)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}
	symptomViews := make([]symptomEntryView, 0, len(symptoms))
	for _, s := range symptoms {
		symptomViews = append(symptomViews, symptomEntryView{
			SymptomType:     s.SymptomType,
			Severity:        s.Severity,
			Notes:           s.Notes,
			DurationMinutes: s.DurationMinutes,
			Triggers:        s.Triggers,
			RecordedAt:      s.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	types, err := repo.ListWearableSeriesTypes(ctx, d.db)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}
	wearables := map[string]any{}
	for _, t := range types {
		samples, err := repo.ListWearableSamples(ctx, d.db, userID, t.Code, dayStart, dayEnd)
		if err != nil {
			return errorResult("query_failed", err.Error())
		}
		if len(samples) == 0 {
			continue
		}
		var sum float64
		for _, s := range samples {
			sum += s.Value
		}
		wearables[t.Code] = map[string]any{
			"avg":   round3(sum / float64(len(samples))),
			"unit":  t.Unit,
			"count": len(samples),
		}
	}

	return toJSON(map[string]any{
		"date":      dateStr,
		"labs":      labsToday,
		"symptoms":  symptomViews,
		"wearables": wearables,
	})
}
