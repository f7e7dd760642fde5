// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SymptomEntry model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// CreateSymptomEntry inserts a new symptom log row.
func CreateSymptomEntry(ctx context.Context, db *gorm.DB, e *domain.SymptomEntry) (*domain.SymptomEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// ListSymptomEntriesPage returns a paginated slice of a user's symptom
// log, most recent first. symptomType filters to one type when non-empty.
func ListSymptomEntriesPage(ctx context.Context, db *gorm.DB, userID, symptomType string, offset, limit int) ([]domain.SymptomEntry, error) {
	var out []domain.SymptomEntry
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if symptomType != "" {
		q = q.Where("symptom_type = ?", symptomType)
	}
	err := q.Order("recorded_at desc").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// ListSymptomEntriesInRange returns a user's symptom entries within
// [since, until], ordered chronologically — used by the symptom-timeline
// tool and by correlation analysis.
func ListSymptomEntriesInRange(ctx context.Context, db *gorm.DB, userID, symptomType string, since, until time.Time) ([]domain.SymptomEntry, error) {
	var out []domain.SymptomEntry
	q := db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ? AND recorded_at <= ?", userID, since, until)
	if symptomType != "" {
		q = q.Where("symptom_type = ?", symptomType)
	}
	err := q.Order("recorded_at asc").Find(&out).Error
	return out, err
}

// ListDistinctSymptomTypes returns every symptom type the user has logged
// at least once.
func ListDistinctSymptomTypes(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.SymptomEntry{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("symptom_type asc").
		Pluck("symptom_type", &out).Error
	return out, err
}
