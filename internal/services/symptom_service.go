package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// SymptomService records and retrieves the user's self-reported symptom
// log.
type SymptomService struct {
	DB *gorm.DB
}

// NewSymptomService wires a SymptomService to its database.
func NewSymptomService(db *gorm.DB) *SymptomService {
	return &SymptomService{DB: db}
}

// Log validates and inserts a new symptom entry.
func (s *SymptomService) Log(ctx context.Context, e *domain.SymptomEntry) (*domain.SymptomEntry, error) {
	if e.Severity < 0 || e.Severity > 10 {
		return nil, ErrInvalidSymptomSeverity
	}
	if err := repo.EnsureUser(ctx, s.DB, e.UserID); err != nil {
		return nil, err
	}
	return repo.CreateSymptomEntry(ctx, s.DB, e)
}

// ListPage returns a page of symptom entries for userID, optionally
// filtered to a single symptomType, newest first.
func (s *SymptomService) ListPage(ctx context.Context, userID, symptomType string, page, pageSize int) ([]domain.SymptomEntry, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return repo.ListSymptomEntriesPage(ctx, s.DB, userID, symptomType, offset, pageSize)
}

// ListRecent returns symptom entries recorded within the last `days` days,
// optionally filtered to a single symptomType, ordered chronologically. This
// backs the HTTP list surface, which windows by recency rather than by page.
func (s *SymptomService) ListRecent(ctx context.Context, userID, symptomType string, days int) ([]domain.SymptomEntry, error) {
	if days <= 0 {
		days = 90
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	until := time.Now().UTC()
	return repo.ListSymptomEntriesInRange(ctx, s.DB, userID, symptomType, since, until)
}

// Types returns the distinct symptom types the user has logged, for
// populating filter dropdowns.
func (s *SymptomService) Types(ctx context.Context, userID string) ([]string, error) {
	return repo.ListDistinctSymptomTypes(ctx, s.DB, userID)
}
