// Message-send/streaming HTTP handler.
//
// POST /chat/sessions/{id}/messages streams the assistant's reply as
// Server-Sent Events, one JSON frame per internal/ai.Event, terminated by
// a blank line, exactly as internal/services.Orchestrator produces them.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/services"
)

// SendMessageRequest is the JSON payload for POST /chat/sessions/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message and stream the assistant's reply
// @Description Streams Server-Sent Events: content, tool_call, tool_result, done, error.
// @Tags        Chat
// @Accept      json
// @Produce     text/event-stream
// @Param       id      path string                     true "Session ID"
// @Param       user_id query string                     true "User ID"
// @Param       body    body handlers.SendMessageRequest true "Message payload"
// @Success     200 {string} string "text/event-stream"
// @Failure     400 {object} handlers.ErrorResponse
// @Failure     404 {object} handlers.ErrorResponse
// @Failure     409 {object} handlers.ErrorResponse
// @Router      /chat/sessions/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	sessionID := c.Param("id")
	uid := userID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	events, err := h.Orchestrator.Send(c.Request.Context(), uid, sessionID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrMessageTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, services.ErrStreamConflict):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, canFlush := c.Writer.(http.Flusher)

	for ev := range events {
		frame, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", frame); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
