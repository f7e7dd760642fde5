package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/ai"
	"github.com/tbourn/go-chat-backend/internal/ingest"
)

// AIStatusChecker is the subset of ai.Gateway the status endpoint needs.
type AIStatusChecker interface {
	HealthCheck(ctx context.Context) ai.HealthStatus
}

// OCRStatusChecker is the subset of ingest.OCRClient the status endpoint
// needs.
type OCRStatusChecker interface {
	HealthCheck(ctx context.Context) ingest.HealthStatus
}

// aiStatusResponse combines the inference server and OCR sidecar health
// probes into one payload.
type aiStatusResponse struct {
	Inference ai.HealthStatus      `json:"inference"`
	OCR       *ingest.HealthStatus `json:"ocr,omitempty"`
}

// GetAIStatus godoc
// @ID          getAIStatus
// @Summary     Report inference server and OCR sidecar reachability
// @Tags        AI
// @Produce     json
// @Success     200 {object} handlers.aiStatusResponse
// @Router      /ai/status [get]
func (h *Handlers) GetAIStatus(c *gin.Context) {
	resp := aiStatusResponse{Inference: h.AI.HealthCheck(c.Request.Context())}
	if h.OCR != nil {
		status := h.OCR.HealthCheck(c.Request.Context())
		resp.OCR = &status
	}
	ok(c, http.StatusOK, resp)
}
