// Package services – SessionService
//
// Manages the lifecycle of chat sessions: creation, listing, retrieval, and
// deletion. Title handling is intentionally minimal here; auto-titling from
// the first user message is performed by the Orchestrator.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

// SessionService provides session-level operations: creating, listing, and
// removing chat sessions. It enforces ownership and title normalization.
type SessionService struct {
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewSessionService constructs a SessionService with sane title defaults.
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db, TitleMaxLen: 80}
}

// Create inserts a new session owned by userID, ensuring the user row
// exists first. An explicit title is normalized and clipped; an absent
// one is left nil so the orchestrator can auto-title from the first
// message.
func (s *SessionService) Create(ctx context.Context, userID string, title *string) (*domain.ChatSession, error) {
	if err := repo.EnsureUser(ctx, s.DB, userID); err != nil {
		return nil, err
	}

	var normalized *string
	if title != nil {
		t := s.clip(normalizeTitle(*title))
		if t != "" {
			normalized = &t
		}
	}
	return repo.CreateChatSession(ctx, s.DB, userID, normalized)
}

// ListPage returns a page of sessions for userID, most recently active
// first, and the total session count.
func (s *SessionService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountChatSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatSession{}, 0, nil
	}

	items, err := repo.ListChatSessionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches a single session, translating a not-found row into
// ErrSessionNotFound.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := repo.GetChatSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Delete removes a session (and, by cascade, its messages), translating a
// not-found row into ErrSessionNotFound.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	if err := repo.DeleteChatSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// clip truncates a title to the configured maximum rune length.
func (s *SessionService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)
