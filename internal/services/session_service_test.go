package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-backend/internal/repo"
)

func newServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSessionService_CreateDefaultsToNilTitle(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSessionService(db)

	sess, err := svc.Create(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Title != nil {
		t.Fatalf("expected nil title, got %v", *sess.Title)
	}
}

func TestSessionService_CreateNormalizesAndClipsTitle(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSessionService(db)
	svc.TitleMaxLen = 5

	title := "  hello   world  "
	sess, err := svc.Create(context.Background(), "u1", &title)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Title == nil || *sess.Title != "hello" {
		t.Fatalf("expected clipped title %q, got %v", "hello", sess.Title)
	}
}

func TestSessionService_GetNotFound(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSessionService(db)

	if _, err := svc.Get(context.Background(), "u1", "missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_DeleteRemovesSession(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSessionService(db)

	sess, err := svc.Create(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), "u1", sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", sess.ID); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionService_ListPageOrdersByActivity(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSessionService(db)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "u1", nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	items, total, err := svc.ListPage(context.Background(), "u1", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(items))
	}
}
