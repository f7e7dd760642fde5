// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only queries and seed helpers
// for wearable series data. Wearable ingestion is out of scope; samples
// are seeded fixtures standing in for an external provider sync.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// DefaultWearableSeriesTypes is the fixed catalog of wearable metrics this
// implementation understands.
var DefaultWearableSeriesTypes = []domain.WearableSeriesType{
	{Code: "resting_heart_rate", Unit: "bpm", DisplayName: "Resting Heart Rate"},
	{Code: "sleep_duration", Unit: "hours", DisplayName: "Sleep Duration"},
	{Code: "steps", Unit: "count", DisplayName: "Daily Steps"},
	{Code: "hrv", Unit: "ms", DisplayName: "Heart Rate Variability"},
	{Code: "active_calories", Unit: "kcal", DisplayName: "Active Calories"},
}

// SeedWearableSeriesTypes inserts the default catalog, ignoring rows that
// already exist.
func SeedWearableSeriesTypes(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&DefaultWearableSeriesTypes).Error
}

// InsertWearableSample records one reading. Used by the fixture seeder;
// no live wearable sync exists in this implementation.
func InsertWearableSample(ctx context.Context, db *gorm.DB, s *domain.WearableSample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(s).Error
}

// ListWearableSamples returns a user's readings for one series within
// [since, until], ordered chronologically.
func ListWearableSamples(ctx context.Context, db *gorm.DB, userID, seriesCode string, since, until time.Time) ([]domain.WearableSample, error) {
	var out []domain.WearableSample
	err := db.WithContext(ctx).
		Where("user_id = ? AND series_code = ? AND recorded_at >= ? AND recorded_at <= ?", userID, seriesCode, since, until).
		Order("recorded_at asc").
		Find(&out).Error
	return out, err
}

// ListWearableSeriesTypes returns the full metric catalog.
func ListWearableSeriesTypes(ctx context.Context, db *gorm.DB) ([]domain.WearableSeriesType, error) {
	var out []domain.WearableSeriesType
	err := db.WithContext(ctx).Order("code asc").Find(&out).Error
	return out, err
}
