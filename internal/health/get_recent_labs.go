package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

const recentLabsLimit = 100

type labResultView struct {
	TestName     string   `json:"test_name"`
	TestCode     *string  `json:"test_code,omitempty"`
	Value        float64  `json:"value"`
	Unit         string   `json:"unit"`
	ReferenceMin *float64 `json:"reference_min,omitempty"`
	ReferenceMax *float64 `json:"reference_max,omitempty"`
	Status       *string  `json:"status,omitempty"`
	RecordedAt   string   `json:"recorded_at"`
}

func (d *Dispatcher) getRecentLabs(ctx context.Context, userID string, args map[string]json.RawMessage) string {
	days := argInt(args, "days", 90)
	testName := argString(args, "test_name")
	since := time.Now().AddDate(0, 0, -days)

	rows, err := repo.ListLabResultsRecent(ctx, d.db, userID, since, testName, recentLabsLimit)
	if err != nil {
		return errorResult("query_failed", err.Error())
	}

	results := make([]labResultView, 0, len(rows))
	for _, r := range rows {
		results = append(results, labResultView{
			TestName:     r.TestName,
			TestCode:     r.TestCode,
			Value:        r.Value,
			Unit:         r.Unit,
			ReferenceMin: r.ReferenceMin,
			ReferenceMax: r.ReferenceMax,
			Status:       r.Status,
			RecordedAt:   r.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	return toJSON(map[string]any{
		"period_days": days,
		"count":       len(results),
		"results":     results,
	})
}
