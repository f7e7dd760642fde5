// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the single-writer-per-session
// enforcement mechanism for message streaming: a conditional insert into
// active_stream, keyed by session ID, rather than an in-process mutex
// (which would not hold across multiple server instances).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// ErrStreamAlreadyActive is returned by StartStream when a stream is
// already in flight for the session.
var ErrStreamAlreadyActive = errors.New("stream already active")

// StartStream attempts to claim the single writer slot for sessionID. It
// succeeds only if no active_stream row exists for that session; on
// unique-constraint violation it returns ErrStreamAlreadyActive.
func StartStream(ctx context.Context, db *gorm.DB, sessionID string) error {
	row := &domain.ActiveStream{SessionID: sessionID, StartedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrStreamAlreadyActive
		}
		return err
	}
	return nil
}

// EndStream releases the writer slot for sessionID. It is idempotent: no
// error is returned if the row is already gone.
func EndStream(ctx context.Context, db *gorm.DB, sessionID string) error {
	return db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&domain.ActiveStream{}).Error
}

// IsStreamActive reports whether a stream is currently claimed for
// sessionID.
func IsStreamActive(ctx context.Context, db *gorm.DB, sessionID string) (bool, error) {
	var cnt int64
	err := db.WithContext(ctx).
		Model(&domain.ActiveStream{}).
		Where("session_id = ?", sessionID).
		Count(&cnt).Error
	return cnt > 0, err
}
