package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-backend/internal/ai"
	"github.com/tbourn/go-chat-backend/internal/health"
	"github.com/tbourn/go-chat-backend/internal/ingest"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/services"
)

func newHandlersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type stubPublisher struct{}

func (stubPublisher) Publish(_ context.Context, _ ingest.Job) error { return nil }

type stubAIChecker struct{ status ai.HealthStatus }

func (s stubAIChecker) HealthCheck(context.Context) ai.HealthStatus { return s.status }

type stubOCRChecker struct{ status ingest.HealthStatus }

func (s stubOCRChecker) HealthCheck(context.Context) ingest.HealthStatus { return s.status }

func newTestHandlers(t *testing.T) (*Handlers, *gorm.DB) {
	t.Helper()
	db := newHandlersTestDB(t)
	dispatcher := health.NewDispatcher(db)
	h := New(
		services.NewSessionService(db),
		services.NewOrchestrator(db, nil, dispatcher, "test-model"),
		services.NewDocumentService(db, stubPublisher{}),
		services.NewLabService(db, dispatcher),
		services.NewSymptomService(db),
		stubAIChecker{status: ai.HealthStatus{Reachable: true}},
		stubOCRChecker{status: ingest.HealthStatus{Reachable: true}},
		t.TempDir(),
	)
	return h, db
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat/sessions", h.CreateSession)
	r.GET("/chat/sessions", h.ListSessions)
	r.GET("/chat/sessions/:id", h.GetSession)
	r.DELETE("/chat/sessions/:id", h.DeleteSession)
	r.POST("/documents/upload", h.UploadDocument)
	r.GET("/documents", h.ListDocuments)
	r.GET("/labs", h.ListLabs)
	r.GET("/labs/trends/:test_name", h.GetLabTrend)
	r.GET("/labs/test-names", h.ListLabTestNames)
	r.POST("/chat/sessions/:id/messages", h.SendMessage)
	r.POST("/symptoms", h.LogSymptom)
	r.GET("/symptoms", h.ListSymptoms)
	r.GET("/symptoms/types", h.ListSymptomTypes)
	r.GET("/ai/status", h.GetAIStatus)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUserIDHelper(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?user_id=u-query", nil)
	if got := userID(c); got != "u-query" {
		t.Fatalf("query userID = %q", got)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "u-header")
	c.Request = req
	if got := userID(c); got != "u-header" {
		t.Fatalf("header fallback userID = %q", got)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	if got := userID(c); got != "demo-user" {
		t.Fatalf("default fallback userID = %q", got)
	}
}

func TestClampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 1 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}
}

func TestSessionHandlers_CreateListGetDelete(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := doJSON(r, http.MethodPost, "/chat/sessions", CreateSessionRequest{UserID: "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected a session id")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chat/sessions?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list ListSessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Sessions) != 1 || list.Pagination.Total != 1 {
		t.Fatalf("expected one session, got %+v", list)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/chat/sessions/"+created.ID+"?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/chat/sessions/"+created.ID+"?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/chat/sessions/"+created.ID+"?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-after-delete status = %d", rec.Code)
	}
}

func TestSessionHandlers_CreateRejectsMissingUserID(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := doJSON(r, http.MethodPost, "/chat/sessions", CreateSessionRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSymptomHandlers_LogAndList(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := doJSON(r, http.MethodPost, "/symptoms", LogSymptomRequest{
		UserID: "u1", SymptomType: "headache", Severity: 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("log status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/symptoms", LogSymptomRequest{
		UserID: "u1", SymptomType: "headache", Severity: 99,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid severity, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/symptoms?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/symptoms/types?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("types status = %d", rec.Code)
	}
	var types []string
	if err := json.Unmarshal(rec.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode types: %v", err)
	}
	if len(types) != 1 || types[0] != "headache" {
		t.Fatalf("expected [headache], got %v", types)
	}
}

func TestLabHandlers_ListTrendAndTestNames(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/labs?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/labs/trends/Glucose?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("trend status = %d body=%s", rec.Code, rec.Body.String())
	}
	var trend map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &trend); err != nil {
		t.Fatalf("decode trend: %v", err)
	}
	if trend["trend"] != "no_data" {
		t.Fatalf("expected no_data trend for empty store, got %v", trend)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/labs/test-names?user_id=u1", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("test-names status = %d", rec.Code)
	}
}

func TestAIStatusHandler(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ai/status", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp aiStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Inference.Reachable {
		t.Fatalf("expected reachable inference status")
	}
	if resp.OCR == nil || !resp.OCR.Reachable {
		t.Fatalf("expected reachable OCR status")
	}
}

func TestSendMessage_ValidationAndNotFoundPaths(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	rec := doJSON(r, http.MethodPost, "/chat/sessions/does-not-exist/messages", SendMessageRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing content, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/chat/sessions/does-not-exist/messages?user_id=u1", SendMessageRequest{Content: "hello"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUploadDocument_RejectsMissingFields(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("user_id", "u1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUploadDocument_StoresFileAndEnqueuesJob(t *testing.T) {
	h, _ := newTestHandlers(t)
	r := newTestRouter(h)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("user_id", "u1")
	mw.WriteField("title", "Glucose Panel")
	mw.WriteField("document_type", "lab_report")
	fw, _ := mw.CreateFormFile("file", "report.pdf")
	fw.Write([]byte("%PDF-1.4 fake content"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
}
