package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

func TestChatSessionsStats_EmptyUser(t *testing.T) {
	db := newRepoTestDB(t)
	count, max, err := ChatSessionsStats(context.Background(), db, "nobody")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 0 || max != nil {
		t.Fatalf("expected zero stats, got count=%d max=%v", count, max)
	}
}

func TestChatSessionsStats_ReflectsRows(t *testing.T) {
	db := newRepoTestDB(t)
	ctx := context.Background()

	if _, err := CreateChatSession(ctx, db, "u1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateChatSession(ctx, db, "u1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	count, max, err := ChatSessionsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || max == nil {
		t.Fatalf("expected count=2 and non-nil max, got count=%d max=%v", count, max)
	}
}

func TestChatMessagesStats(t *testing.T) {
	db := newRepoTestDB(t)
	ctx := context.Background()

	s, _ := CreateChatSession(ctx, db, "u1", nil)
	if _, err := AppendMessage(ctx, db, s.ID, domain.RoleUser, "hi", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	count, max, err := ChatMessagesStats(ctx, db, s.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 1 || max == nil {
		t.Fatalf("expected count=1 and non-nil max, got count=%d max=%v", count, max)
	}
}

func TestDocumentsStats(t *testing.T) {
	db := newRepoTestDB(t)
	ctx := context.Background()

	doc, err := CreateMedicalDocument(ctx, db, "u1", "CBC panel", domain.DocTypeLabReport, "/data/f.pdf", "application/pdf", nil)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.Status != domain.DocStatusUploading {
		t.Fatalf("expected initial status=uploading, got %q", doc.Status)
	}

	count, max, err := DocumentsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 1 || max == nil {
		t.Fatalf("expected count=1 and non-nil max, got count=%d max=%v", count, max)
	}
}
