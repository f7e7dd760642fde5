// Medical document HTTP handlers.
//
// This file exposes REST endpoints for uploaded documents:
//   - POST   /documents/upload  (multipart)
//   - GET    /documents
//   - GET    /documents/{id}
//   - DELETE /documents/{id}
package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-chat-backend/internal/services"
)

// ListDocumentsResponse wraps a page of documents and pagination metadata.
type ListDocumentsResponse struct {
	Documents  []any      `json:"documents"`
	Pagination Pagination `json:"pagination"`
}

// UploadDocument godoc
// @ID          uploadDocument
// @Summary     Upload a medical document for ingestion
// @Description Stores the file, records its metadata, and enqueues an ingestion job.
// @Tags        Documents
// @Accept      multipart/form-data
// @Produce     json
// @Param       file          formData file   true  "Document file"
// @Param       user_id       formData string true  "User ID"
// @Param       title         formData string true  "Document title"
// @Param       document_type formData string true  "Document type"
// @Param       document_date formData string false "Document date (YYYY-MM-DD)"
// @Success     201 {object} domain.MedicalDocument
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /documents/upload [post]
func (h *Handlers) UploadDocument(c *gin.Context) {
	uid := strings.TrimSpace(c.PostForm("user_id"))
	title := strings.TrimSpace(c.PostForm("title"))
	documentType := strings.TrimSpace(c.PostForm("document_type"))
	if uid == "" || title == "" || documentType == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id, title, and document_type are required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file is required")
		return
	}

	var documentDate *time.Time
	if raw := strings.TrimSpace(c.PostForm("document_date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document_date must be YYYY-MM-DD")
			return
		}
		documentDate = &parsed
	}

	destName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	destPath := filepath.Join(h.UploadDir, destName)
	if err := c.SaveUploadedFile(fileHeader, destPath); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to store uploaded file")
		return
	}

	fileType := fileHeader.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	doc, err := h.Documents.Upload(c.Request.Context(), uid, title, documentType, destPath, fileType, documentDate)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List uploaded documents for a user
// @Tags        Documents
// @Produce     json
// @Param       user_id query string true "User ID"
// @Success     200 {object} handlers.ListDocumentsResponse
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	uid := userID(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.Documents.ListPage(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	views := make([]any, len(items))
	for i := range items {
		views[i] = items[i]
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListDocumentsResponse{
		Documents: views,
		Pagination: Pagination{
			Page: page, PageSize: pageSize, Total: total,
			TotalPages: totalPages, HasNext: page < totalPages,
		},
	})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Fetch a document's status and diagnostics
// @Tags        Documents
// @Produce     json
// @Param       id      path  string true "Document ID"
// @Param       user_id query string true "User ID"
// @Success     200 {object} domain.MedicalDocument
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.Documents.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
		return
	}
	ok(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Description Deletes the document row; derived lab results are kept, detached from it.
// @Tags        Documents
// @Param       id      path  string true "Document ID"
// @Param       user_id query string true "User ID"
// @Success     204
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	if err := h.Documents.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
