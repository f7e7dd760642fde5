// Symptom entry HTTP handlers.
//
//   - POST /symptoms
//   - GET  /symptoms
//   - GET  /symptoms/types
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/services"
	"github.com/tbourn/go-chat-backend/internal/utils"
)

// LogSymptomRequest is the JSON payload for POST /symptoms.
type LogSymptomRequest struct {
	UserID          string    `json:"user_id" binding:"required"`
	SymptomType     string    `json:"symptom_type" binding:"required"`
	Severity        int       `json:"severity"`
	Notes           *string   `json:"notes,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Triggers        []string  `json:"triggers,omitempty"`
}

// LogSymptom godoc
// @ID          logSymptom
// @Summary     Record a self-reported symptom entry
// @Tags        Symptoms
// @Accept      json
// @Produce     json
// @Param       body body handlers.LogSymptomRequest true "Symptom entry"
// @Success     201 {object} domain.SymptomEntry
// @Failure     400 {object} handlers.ErrorResponse
// @Router      /symptoms [post]
func (h *Handlers) LogSymptom(c *gin.Context) {
	var req LogSymptomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.RecordedAt.IsZero() {
		req.RecordedAt = time.Now().UTC()
	}

	var triggers *string
	if len(req.Triggers) > 0 {
		encoded, err := json.Marshal(req.Triggers)
		if err == nil {
			s := string(encoded)
			triggers = &s
		}
	}

	entry, err := h.Symptoms.Log(c.Request.Context(), &domain.SymptomEntry{
		UserID:          req.UserID,
		SymptomType:     req.SymptomType,
		Severity:        req.Severity,
		Notes:           req.Notes,
		RecordedAt:      req.RecordedAt,
		DurationMinutes: req.DurationMinutes,
		Triggers:        triggers,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSymptomSeverity) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, entry)
}

// ListSymptoms godoc
// @ID          listSymptoms
// @Summary     List symptom entries
// @Tags        Symptoms
// @Produce     json
// @Param       user_id      query string true  "User ID"
// @Param       days         query int    false "Lookback window in days (default 90)"
// @Param       symptom_type query string false "Filter to one symptom type"
// @Success     200 {array} domain.SymptomEntry
// @Router      /symptoms [get]
func (h *Handlers) ListSymptoms(c *gin.Context) {
	days := utils.AtoiDefault(c.Query("days"), 90)

	items, err := h.Symptoms.ListRecent(c.Request.Context(), userID(c), c.Query("symptom_type"), days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// ListSymptomTypes godoc
// @ID          listSymptomTypes
// @Summary     Distinct symptom types on record for a user
// @Tags        Symptoms
// @Produce     json
// @Param       user_id query string true "User ID"
// @Success     200 {array} string
// @Router      /symptoms/types [get]
func (h *Handlers) ListSymptomTypes(c *gin.Context) {
	types, err := h.Symptoms.Types(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, types)
}
