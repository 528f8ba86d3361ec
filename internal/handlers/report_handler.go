package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cashflow/internal/services"
)

// ReportHandler serves aggregated views of the user's transactions.
type ReportHandler struct {
	reportService services.ReportServicer
	now           func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService, now: time.Now}
}

// GetSummary returns totals and category breakdown
// @Summary     Transaction summary
// @Description Gross totals, net, categories and per-category breakdown for the filtered transactions
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Inclusive start day"
// @Param       end_date   query string false "Inclusive end day"
// @Param       preset     query string false "Named range, e.g. this-year"
// @Param       type       query string false "income or expense"
// @Param       category   query string false "Category"
// @Success     200 {object} services.Summary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	today := h.now()
	filter, err := parseTransactionFilter(c, today)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.reportService.GetSummary(c.Request.Context(), userID, filter, today)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetPresets lists the named date ranges resolved for today
// @Summary     Date range presets
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} services.PresetRange "Presets"
// @Router      /reports/presets [get]
func (h *ReportHandler) GetPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.reportService.GetPresets(h.now())})
}
