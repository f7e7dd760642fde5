// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// LabResult model, including dedup-aware insert for the extraction stage
// of the ingestion pipeline.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// InsertLabResultSkipDuplicate inserts a lab result unless one already
// matches the dedup key: (user_id, test_code, recorded_at) when
// r.TestCode is set, else (user_id, test_name, recorded_at). On a
// conflict the existing row is left untouched — duplicates are skipped,
// never updated. Returns whether a new row was inserted.
func InsertLabResultSkipDuplicate(ctx context.Context, db *gorm.DB, r *domain.LabResult) (created bool, err error) {
	var existing domain.LabResult
	q := db.WithContext(ctx).Where("user_id = ? AND recorded_at = ?", r.UserID, r.RecordedAt)
	if r.TestCode != nil && *r.TestCode != "" {
		q = q.Where("test_code = ?", *r.TestCode)
	} else {
		q = q.Where("test_name = ?", r.TestName)
	}

	lookErr := q.First(&existing).Error
	switch {
	case lookErr == nil:
		return false, nil
	case errors.Is(lookErr, gorm.ErrRecordNotFound):
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		return true, db.WithContext(ctx).Create(r).Error
	default:
		return false, lookErr
	}
}

// ListLabResultsByTest returns a user's results for test names matching
// testName (case-insensitive partial match), ordered chronologically —
// the shape the lab-trend tool needs.
func ListLabResultsByTest(ctx context.Context, db *gorm.DB, userID, testName string, since *time.Time) ([]domain.LabResult, error) {
	var out []domain.LabResult
	q := db.WithContext(ctx).Where("user_id = ? AND test_name LIKE ?", userID, "%"+testName+"%")
	if since != nil {
		q = q.Where("recorded_at >= ?", *since)
	}
	err := q.Order("recorded_at asc").Find(&out).Error
	return out, err
}

// ListRecentLabResults returns a user's most recent results across all
// tests, newest first, capped at limit.
func ListRecentLabResults(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.LabResult, error) {
	var out []domain.LabResult
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order("recorded_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListLabResultsRecent returns a user's lab results recorded at or after
// since, newest first, optionally filtered to test names matching
// testNameLike (case-insensitive partial match), capped at limit. This
// backs the get_recent_labs tool.
func ListLabResultsRecent(ctx context.Context, db *gorm.DB, userID string, since time.Time, testNameLike string, limit int) ([]domain.LabResult, error) {
	var out []domain.LabResult
	q := db.WithContext(ctx).Where("user_id = ? AND recorded_at >= ?", userID, since)
	if testNameLike != "" {
		q = q.Where("test_name LIKE ?", "%"+testNameLike+"%")
	}
	q = q.Order("recorded_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListDistinctLabTestNames returns every test name the user has at least
// one recorded result for.
func ListDistinctLabTestNames(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.LabResult{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("test_name asc").
		Pluck("test_name", &out).Error
	return out, err
}
