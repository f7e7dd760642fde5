package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/health"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// LabService backs the lab-results HTTP surface. Trend queries delegate to
// the health tool dispatcher so the HTTP response and the chat tool's
// get_lab_trend answer are always computed by the same logic.
type LabService struct {
	DB         *gorm.DB
	Dispatcher *health.Dispatcher
}

// NewLabService wires a LabService to its database and tool dispatcher.
func NewLabService(db *gorm.DB, dispatcher *health.Dispatcher) *LabService {
	return &LabService{DB: db, Dispatcher: dispatcher}
}

// List returns lab results recorded within the last `days` days,
// optionally filtered to test names containing testName.
func (s *LabService) List(ctx context.Context, userID string, days int, testName string) ([]domain.LabResult, error) {
	if days <= 0 {
		days = 90
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return repo.ListLabResultsRecent(ctx, s.DB, userID, since, testName, 500)
}

// Trend returns the get_lab_trend tool's response, decoded into a generic
// map so the HTTP layer can serialize it as a normal JSON object.
func (s *LabService) Trend(ctx context.Context, userID, testName string, months int) (map[string]any, error) {
	payload := map[string]any{"test_name": testName}
	if months > 0 {
		payload["months"] = months
	}
	args, _ := json.Marshal(payload)
	raw := s.Dispatcher.Execute(ctx, userID, "get_lab_trend", string(args))

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode trend result: %w", err)
	}
	return out, nil
}

// TestNames returns the distinct lab test names the user has on record.
func (s *LabService) TestNames(ctx context.Context, userID string) ([]string, error) {
	return repo.ListDistinctLabTestNames(ctx, s.DB, userID)
}
