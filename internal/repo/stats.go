// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries
// (row count plus latest timestamp). No HTTP handler calls them, and the
// HTTP layer does not produce ETags or conditional responses. Each
// function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// ChatSessionsStats returns aggregate metadata for a user's sessions: the
// total number of rows and the maximum LastActivityAt among those rows.
func ChatSessionsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxActivity *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChatSession{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		LastActivityAt time.Time
	}
	if err = q.Select("last_activity_at").Order("last_activity_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.LastActivityAt, nil
}

// ChatMessagesStats returns aggregate metadata for messages within a given
// session: the total number of rows and the maximum CreatedAt timestamp.
func ChatMessagesStats(ctx context.Context, db *gorm.DB, sessionID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("session_id = ?", sessionID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// DocumentsStats returns aggregate metadata for a user's documents: total
// rows and the maximum CreatedAt timestamp.
func DocumentsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.MedicalDocument{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
