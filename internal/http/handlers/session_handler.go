// Chat session HTTP handlers.
//
// This file exposes REST endpoints for chat session resources:
//   - POST   /chat/sessions
//   - GET    /chat/sessions
//   - GET    /chat/sessions/{id}
//   - DELETE /chat/sessions/{id}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/services"
)

// sessionWithMessages is a session optionally embedding its messages; the
// list endpoint omits Messages, the get-by-id endpoint populates it.
type sessionWithMessages struct {
	domain.ChatSession
	Messages []domain.ChatMessage `json:"messages,omitempty"`
}

// CreateSessionRequest is the JSON payload for creating a chat session.
type CreateSessionRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Title  *string `json:"title,omitempty"`
}

// ListSessionsResponse wraps a page of sessions and pagination metadata.
type ListSessionsResponse struct {
	Sessions   []sessionWithMessages `json:"sessions"`
	Pagination Pagination            `json:"pagination"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// CreateSession godoc
// @ID          createSession
// @Summary     Create a chat session
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body body handlers.CreateSessionRequest true "Create session payload"
// @Success     201 {object} domain.ChatSession
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /chat/sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
		return
	}

	sess, err := h.Sessions.Create(c.Request.Context(), req.UserID, req.Title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List chat sessions for a user
// @Tags        Chat
// @Produce     json
// @Param       user_id   query string true  "User ID"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} handlers.ListSessionsResponse
// @Router      /chat/sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.Sessions.ListPage(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	views := make([]sessionWithMessages, len(items))
	for i, s := range items {
		views[i] = sessionWithMessages{ChatSession: s}
	}
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions: views,
		Pagination: Pagination{
			Page: page, PageSize: pageSize, Total: total,
			TotalPages: totalPages, HasNext: page < totalPages,
		},
	})
}

// GetSession godoc
// @ID          getSession
// @Summary     Fetch a chat session and its messages
// @Tags        Chat
// @Produce     json
// @Param       id      path  string true "Session ID"
// @Param       user_id query string true "User ID"
// @Success     200 {object} handlers.sessionWithMessages
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /chat/sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	uid := userID(c)

	sess, err := h.Sessions.Get(c.Request.Context(), uid, sessionID)
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
		return
	}

	msgs, err := repo.ListMessages(c.Request.Context(), h.Sessions.DB, sessionID, 0)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sessionWithMessages{ChatSession: *sess, Messages: msgs})
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Delete a chat session
// @Tags        Chat
// @Param       id      path  string true "Session ID"
// @Param       user_id query string true "User ID"
// @Success     204
// @Failure     404 {object} handlers.ErrorResponse
// @Router      /chat/sessions/{id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	uid := userID(c)

	if err := h.Sessions.Delete(c.Request.Context(), uid, sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
