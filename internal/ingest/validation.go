package ingest

import (
	"strings"
	"time"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// ValidationResult is the outcome of validating one document's extracted
// lab results: the rows worth persisting, and how many were dropped.
type ValidationResult struct {
	Valid   []domain.LabResult
	Dropped int
}

// Validate checks each extracted result against the required-field,
// numeric, and date-parseability rules from SPEC_FULL.md §4.4's
// validation stage, dropping any row that fails. userID and documentID
// are stamped onto every surviving row.
func Validate(results []ExtractedLabResult, userID, documentID string) ValidationResult {
	out := ValidationResult{}

	for _, r := range results {
		testName := strings.TrimSpace(r.TestName)
		unit := strings.TrimSpace(r.Unit)

		if testName == "" || unit == "" || r.Value == nil {
			out.Dropped++
			continue
		}

		recordedAt, err := parseRecordedAt(r.RecordedAt)
		if err != nil {
			out.Dropped++
			continue
		}

		row := domain.LabResult{
			UserID:       userID,
			TestName:     testName,
			Value:        *r.Value,
			Unit:         unit,
			RecordedAt:   recordedAt,
			DocumentID:   &documentID,
			ReferenceMin: r.ReferenceMin,
			ReferenceMax: r.ReferenceMax,
		}
		if r.TestCode != "" {
			code := r.TestCode
			row.TestCode = &code
		}
		if r.Status != "" {
			status := strings.ToLower(strings.TrimSpace(r.Status))
			row.Status = &status
		}

		out.Valid = append(out.Valid, row)
	}

	return out
}

// parseRecordedAt accepts either a bare date or a full RFC3339 timestamp,
// matching what an extraction model plausibly emits.
func parseRecordedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
