// Lab result HTTP handlers.
//
//   - GET /labs
//   - GET /labs/trends/{test_name}
//   - GET /labs/test-names
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/utils"
)

// ListLabs godoc
// @ID          listLabs
// @Summary     List lab results within a recent window
// @Tags        Labs
// @Produce     json
// @Param       user_id   query string true  "User ID"
// @Param       days      query int    false "Lookback window in days (default 90)"
// @Param       test_name query string false "Partial, case-insensitive test name filter"
// @Success     200 {array} domain.LabResult
// @Router      /labs [get]
func (h *Handlers) ListLabs(c *gin.Context) {
	uid := userID(c)
	days := utils.AtoiDefault(c.Query("days"), 90)

	results, err := h.Labs.List(c.Request.Context(), uid, days, c.Query("test_name"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, results)
}

// GetLabTrend godoc
// @ID          getLabTrend
// @Summary     Trend statistics for one lab test over time
// @Tags        Labs
// @Produce     json
// @Param       test_name path  string true  "Test name"
// @Param       user_id   query string true  "User ID"
// @Param       months    query int    false "Lookback window in months (default 12)"
// @Success     200 {object} map[string]any
// @Router      /labs/trends/{test_name} [get]
func (h *Handlers) GetLabTrend(c *gin.Context) {
	uid := userID(c)
	testName := c.Param("test_name")
	months := utils.AtoiDefault(c.Query("months"), 0)

	trend, err := h.Labs.Trend(c.Request.Context(), uid, testName, months)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, trend)
}

// ListLabTestNames godoc
// @ID          listLabTestNames
// @Summary     Distinct lab test names on record for a user
// @Tags        Labs
// @Produce     json
// @Param       user_id query string true "User ID"
// @Success     200 {array} string
// @Router      /labs/test-names [get]
func (h *Handlers) ListLabTestNames(c *gin.Context) {
	names, err := h.Labs.TestNames(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, names)
}
