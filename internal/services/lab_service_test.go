package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/health"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

func TestLabService_ListFiltersByWindow(t *testing.T) {
	db := newServicesTestDB(t)
	ctx := context.Background()
	svc := NewLabService(db, health.NewDispatcher(db))

	if err := repo.EnsureUser(ctx, db, "u1"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	old := &domain.LabResult{UserID: "u1", TestName: "Glucose", Value: 90, Unit: "mg/dL", RecordedAt: time.Now().AddDate(0, 0, -400)}
	recent := &domain.LabResult{UserID: "u1", TestName: "Glucose", Value: 95, Unit: "mg/dL", RecordedAt: time.Now().AddDate(0, 0, -10)}
	if _, err := repo.InsertLabResultSkipDuplicate(ctx, db, old); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if _, err := repo.InsertLabResultSkipDuplicate(ctx, db, recent); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	results, err := svc.List(ctx, "u1", 90, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 1 || results[0].Value != 95 {
		t.Fatalf("expected only the recent result, got %+v", results)
	}
}

func TestLabService_TrendMatchesToolOutputShape(t *testing.T) {
	db := newServicesTestDB(t)
	ctx := context.Background()
	svc := NewLabService(db, health.NewDispatcher(db))

	if err := repo.EnsureUser(ctx, db, "u1"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	trend, err := svc.Trend(ctx, "u1", "Glucose", 0)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend["test_name"] != "Glucose" {
		t.Fatalf("unexpected trend payload: %+v", trend)
	}
	if trend["trend"] != "no_data" {
		t.Fatalf("expected no_data trend for empty store, got %+v", trend)
	}
}

func TestLabService_TestNames(t *testing.T) {
	db := newServicesTestDB(t)
	ctx := context.Background()
	svc := NewLabService(db, health.NewDispatcher(db))

	if err := repo.EnsureUser(ctx, db, "u1"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if _, err := repo.InsertLabResultSkipDuplicate(ctx, db, &domain.LabResult{
		UserID: "u1", TestName: "Glucose", Value: 90, Unit: "mg/dL", RecordedAt: time.Now(),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	names, err := svc.TestNames(ctx, "u1")
	if err != nil {
		t.Fatalf("test names: %v", err)
	}
	if len(names) != 1 || names[0] != "Glucose" {
		t.Fatalf("expected [Glucose], got %v", names)
	}
}
