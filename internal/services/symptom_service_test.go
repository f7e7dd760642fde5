package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

func TestSymptomService_LogRejectsOutOfRangeSeverity(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSymptomService(db)

	_, err := svc.Log(context.Background(), &domain.SymptomEntry{
		UserID:      "u1",
		SymptomType: "headache",
		Severity:    11,
		RecordedAt:  time.Now().UTC(),
	})
	if err != ErrInvalidSymptomSeverity {
		t.Fatalf("expected ErrInvalidSymptomSeverity, got %v", err)
	}
}

func TestSymptomService_LogAndList(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSymptomService(db)
	ctx := context.Background()

	if _, err := svc.Log(ctx, &domain.SymptomEntry{
		UserID: "u1", SymptomType: "headache", Severity: 6, RecordedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if _, err := svc.Log(ctx, &domain.SymptomEntry{
		UserID: "u1", SymptomType: "fatigue", Severity: 3, RecordedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("log: %v", err)
	}

	items, err := svc.ListPage(ctx, "u1", "", 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}

	types, err := svc.Types(ctx, "u1")
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 distinct types, got %v", types)
	}
}

func TestSymptomService_ListRecentFiltersByWindow(t *testing.T) {
	db := newServicesTestDB(t)
	svc := NewSymptomService(db)
	ctx := context.Background()

	if _, err := svc.Log(ctx, &domain.SymptomEntry{
		UserID: "u1", SymptomType: "headache", Severity: 4,
		RecordedAt: time.Now().UTC().AddDate(0, 0, -400),
	}); err != nil {
		t.Fatalf("log old: %v", err)
	}
	if _, err := svc.Log(ctx, &domain.SymptomEntry{
		UserID: "u1", SymptomType: "headache", Severity: 5,
		RecordedAt: time.Now().UTC().AddDate(0, 0, -10),
	}); err != nil {
		t.Fatalf("log recent: %v", err)
	}

	items, err := svc.ListRecent(ctx, "u1", "", 90)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(items) != 1 || items[0].Severity != 5 {
		t.Fatalf("expected only the recent entry within 90 days, got %+v", items)
	}
}
