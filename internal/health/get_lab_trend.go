package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

type labTrendPoint struct {
	RecordedAt   string   `json:"recorded_at"`
	Value        float64  `json:"value"`
	Unit         string   `json:"unit"`
	Status       *string  `json:"status,omitempty"`
	ReferenceMin *float64 `json:"reference_min"`
	ReferenceMax *float64 `json:"reference_max"`
}

func (d *Dispatcher) getLabTrend(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	testName := argString(args, "test_name")
	if testName == "" {
		return errorResult("invalid_arguments", "test_name is required")
	}
	months := argInt(args, "months", 12)
	since := time.Now().AddDate(0, -months, 0)

	rows, err := repo.ListLabResultsByTest(ctx, d.db, userID, testName, &since)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}

	if len(rows) == 0 {
		return toJSON(map[string]any{
			"test_name":     testName,
			"period_months": months,
			"count":         0,
			"unit":          "",
			"data_points":   []labTrendPoint{},
			"latest_value":  nil,
			"latest_status": nil,
			"trend":         "no_data",
		})
	}

	points := make([]labTrendPoint, 0, len(rows))
	var sum, min, max float64
	min = rows[0].Value
	max = rows[0].Value
	for _, r := range rows {
		points = append(points, labTrendPoint{
			RecordedAt:   r.RecordedAt.UTC().Format(time.RFC3339),
			Value:        r.Value,
			Unit:         r.Unit,
			Status:       r.Status,
			ReferenceMin: r.ReferenceMin,
			ReferenceMax: r.ReferenceMax,
		})
		sum += r.Value
		if r.Value < min {
			min = r.Value
		}
		if r.Value > max {
			max = r.Value
		}
	}

	latest := rows[len(rows)-1]
	avg := sum / float64(len(rows))
	trend := "stable"
	if len(rows) >= 2 {
		first := rows[0].Value
		switch {
		case first == 0:
			trend = "stable"
		case (latest.Value-first)/absFloat(first) > 0.05:
			trend = "increasing"
		case (latest.Value-first)/absFloat(first) < -0.05:
			trend = "decreasing"
		}
	} else {
		trend = "insufficient_data"
	}

	return toJSON(map[string]any{
		"test_name":     testName,
		"unit":          latest.Unit,
		"period_months": months,
		"count":         len(rows),
		"reference_range": map[string]any{
			"min": latest.ReferenceMin,
			"max": latest.ReferenceMax,
		},
		"data_points":   points,
		"latest_value":  latest.Value,
		"latest_status": latest.Status,
		"statistics": map[string]any{
			"min":    min,
			"max":    max,
			"avg":    avg,
			"latest": latest.Value,
			"trend":  trend,
		},
	})
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
