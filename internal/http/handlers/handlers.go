// Package handlers implements the HTTP transport for the health assistant:
// chat sessions and streaming messages, document uploads, lab and symptom
// query surfaces, and the AI subsystem health probe. Handlers are
// transport-thin: they validate input, call into internal/services, and
// translate results into JSON responses or an SSE stream.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/services"
	"github.com/tbourn/go-chat-backend/internal/utils"
)

// Handlers groups the HTTP endpoints for every resource surface, bound to
// the concrete application services.
type Handlers struct {
	Sessions     *services.SessionService
	Orchestrator *services.Orchestrator
	Documents    *services.DocumentService
	Labs         *services.LabService
	Symptoms     *services.SymptomService
	AI           AIStatusChecker
	OCR          OCRStatusChecker

	// UploadDir is where uploaded document files are written before their
	// path is recorded and the ingestion job is enqueued.
	UploadDir string
}

// New constructs a Handlers instance bound to the given services.
func New(sessions *services.SessionService, orch *services.Orchestrator, documents *services.DocumentService, labs *services.LabService, symptoms *services.SymptomService, ai AIStatusChecker, ocr OCRStatusChecker, uploadDir string) *Handlers {
	return &Handlers{
		Sessions:     sessions,
		Orchestrator: orch,
		Documents:    documents,
		Labs:         labs,
		Symptoms:     symptoms,
		AI:           ai,
		OCR:          ocr,
		UploadDir:    uploadDir,
	}
}

// userID resolves the caller's identity. The spec passes user_id as an
// explicit query or body parameter rather than deriving it from an auth
// layer, so query/form value wins; the X-User-ID header (used by tests and
// simple deployments without a query param) is the fallback.
func userID(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("user_id")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.PostForm("user_id")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.GetHeader("X-User-ID")); v != "" {
		return v
	}
	return "demo-user"
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
