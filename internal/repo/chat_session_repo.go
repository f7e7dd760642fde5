// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatSession model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.), the
//     raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It
// aliases gorm.ErrRecordNotFound for convenience and consistency across
// the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureUser creates a user row if one does not already exist for id. It is
// a no-op if the row is already present.
func EnsureUser(ctx context.Context, db *gorm.DB, userID string) error {
	u := &domain.User{ID: userID, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error
}

// CreateChatSession inserts a new ChatSession row owned by userID. Title
// may be nil; it is filled in lazily from the first user message.
func CreateChatSession(ctx context.Context, db *gorm.DB, userID string, title *string) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          title,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListChatSessionsPage returns a paginated slice of sessions for userID,
// ordered by last activity descending (most recently active first).
func ListChatSessionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountChatSessions returns the total number of sessions owned by userID.
func CountChatSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// GetChatSession fetches a single session by its ID and owner. If the
// record does not exist, it returns ErrNotFound.
func GetChatSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateChatSessionTitle sets the title of a session identified by id and
// owned by userID. Returns ErrNotFound if no row matched.
func UpdateChatSessionTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChatSession removes a session (and, via cascade, its messages).
// Returns ErrNotFound if no row matched.
func DeleteChatSession(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchChatSession advances a session's LastActivityAt to now.
func TouchChatSession(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}
