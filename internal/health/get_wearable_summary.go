package health

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

type dailyBucket struct {
	Date  string  `json:"date"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

func (d *Dispatcher) getWearableSummary(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	metric := argString(args, "metric")
	if metric == "" {
		return errorResult("invalid_arguments", "metric is required")
	}
	days := argInt(args, "days", 30)

	types, err := repo.ListWearableSeriesTypes(ctx, d.db)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}
	unit := ""
	known := false
	for _, t := range types {
		if t.Code == metric {
			unit = t.Unit
			known = true
			break
		}
	}
	if !known {
		available := make([]string, 0, len(types))
		for _, t := range types {
			available = append(available, t.Code)
		}
		return toJSON(map[string]any{
			"error":             "unknown_metric",
			"available_metrics": available,
		})
	}

	now := time.Now()
	since := now.AddDate(0, 0, -days)
	samples, err := repo.ListWearableSamples(ctx, d.db, userID, metric, since, now)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}

	buckets := map[string]*dailyBucket{}
	var order []string
	var overallSum, overallMin, overallMax float64
	for i, s := range samples {
		day := s.RecordedAt.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &dailyBucket{Date: day, Min: s.Value, Max: s.Value}
			buckets[day] = b
			order = append(order, day)
		}
		b.Count++
		b.Avg += s.Value
		if s.Value < b.Min {
			b.Min = s.Value
		}
		if s.Value > b.Max {
			b.Max = s.Value
		}

		overallSum += s.Value
		if i == 0 || s.Value < overallMin {
			overallMin = s.Value
		}
		if i == 0 || s.Value > overallMax {
			overallMax = s.Value
		}
	}
	sort.Strings(order)

	daily := make([]dailyBucket, 0, len(order))
	for _, day := range order {
		b := buckets[day]
		if b.Count > 0 {
			b.Avg = round3(b.Avg / float64(b.Count))
		}
		daily = append(daily, *b)
	}

	var overallAvg float64
	if len(samples) > 0 {
		overallAvg = round3(overallSum / float64(len(samples)))
	}

	return toJSON(map[string]any{
		"metric":       metric,
		"unit":         unit,
		"period_days":  days,
		"count":        len(samples),
		"daily_values": daily,
		"statistics": map[string]any{
			"overall_avg":    overallAvg,
			"overall_min":    overallMin,
			"overall_max":    overallMax,
			"days_with_data": len(order),
		},
	})
}
