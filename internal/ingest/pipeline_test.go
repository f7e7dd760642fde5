package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-backend/internal/ai"
	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

func newIngestTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
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

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestPipeline_RunsOCRExtractionAndPersistsResults(t *testing.T) {
	db := newIngestTestDB(t)
	ctx := context.Background()

	ocrSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[{"md_content":"Glucose 95 mg/dL drawn 2026-01-10"}]}`)
	}))
	defer ocrSrv.Close()

	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"results": []map[string]any{
				{"test_name": "Glucose", "value": 95, "unit": "mg/dL", "recorded_at": "2026-01-10"},
			},
		}
		body, _ := json.Marshal(payload)
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, string(body))
	}))
	defer chatSrv.Close()

	doc, err := repo.CreateMedicalDocument(ctx, db, "u1", "Glucose Panel", domain.DocTypeLabReport, writeTempFile(t, "raw bytes"), "text/plain", nil)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	ocr := NewOCRClient(ocrSrv.URL)
	gateway := ai.NewGateway(chatSrv.URL, "", "m", "m", 5*time.Second)
	extractor := NewExtractor(gateway)
	pipeline := NewPipeline(db, ocr, extractor)

	if err := pipeline.Handle(ctx, Job{DocumentID: doc.ID, UserID: "u1"}); err != nil {
		t.Fatalf("pipeline run: %v", err)
	}

	got, err := repo.GetMedicalDocument(ctx, db, doc.ID, "u1")
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if got.Status != domain.DocStatusCompleted {
		t.Fatalf("expected completed status, got %q (parsed_data=%v)", got.Status, got.ParsedData)
	}

	labs, err := repo.ListRecentLabResults(ctx, db, "u1", 10)
	if err != nil {
		t.Fatalf("list labs: %v", err)
	}
	if len(labs) != 1 || labs[0].TestName != "Glucose" {
		t.Fatalf("expected one persisted Glucose result, got %+v", labs)
	}
}

func TestPipeline_SkipsRedeliveredJobForCompletedDocument(t *testing.T) {
	db := newIngestTestDB(t)
	ctx := context.Background()

	ocr := NewOCRClient("http://127.0.0.1:1")
	gateway := ai.NewGateway("http://127.0.0.1:1", "", "m", "m", time.Second)
	extractor := NewExtractor(gateway)
	pipeline := NewPipeline(db, ocr, extractor)

	doc, err := repo.CreateMedicalDocument(ctx, db, "u1", "Glucose Panel", domain.DocTypeLabReport, writeTempFile(t, "raw bytes"), "text/plain", nil)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if err := repo.UpdateDocumentStatus(ctx, db, doc.ID, domain.DocStatusCompleted); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := pipeline.Handle(ctx, Job{DocumentID: doc.ID, UserID: "u1"}); err != nil {
		t.Fatalf("expected a redelivered job for a completed document to be a no-op, got %v", err)
	}

	got, err := repo.GetMedicalDocument(ctx, db, doc.ID, "u1")
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if got.Status != domain.DocStatusCompleted {
		t.Fatalf("expected status to remain completed, got %q", got.Status)
	}
}

func TestPipeline_OCRFailureMarksDocumentFailed(t *testing.T) {
	db := newIngestTestDB(t)
	ctx := context.Background()

	ocr := NewOCRClient("http://127.0.0.1:1")
	gateway := ai.NewGateway("http://127.0.0.1:1", "", "m", "m", 1*time.Second)
	extractor := NewExtractor(gateway)
	pipeline := NewPipeline(db, ocr, extractor)

	doc, err := repo.CreateMedicalDocument(ctx, db, "u1", "Bad Upload", domain.DocTypeLabReport, writeTempFile(t, "raw bytes"), "text/plain", nil)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if err := pipeline.Handle(ctx, Job{DocumentID: doc.ID, UserID: "u1"}); err == nil {
		t.Fatalf("expected pipeline to report the OCR failure")
	}

	got, err := repo.GetMedicalDocument(ctx, db, doc.ID, "u1")
	if err != nil {
		t.Fatalf("reload document: %v", err)
	}
	if got.Status != domain.DocStatusFailed {
		t.Fatalf("expected failed status, got %q", got.Status)
	}
	if got.ParsedData == nil {
		t.Fatalf("expected a failure diagnostic in parsed_data")
	}
	var diag map[string]string
	if err := json.Unmarshal([]byte(*got.ParsedData), &diag); err != nil {
		t.Fatalf("decode diagnostic: %v", err)
	}
	if diag["stage"] != "ocr" {
		t.Fatalf("expected stage=ocr, got %+v", diag)
	}
}
