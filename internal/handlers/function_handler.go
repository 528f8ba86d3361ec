package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cashflow/internal/dates"
	"cashflow/internal/logger"
	"cashflow/internal/middleware"
	"cashflow/internal/models"
	"cashflow/internal/services"
)

// FunctionHandler serves the two standalone endpoints older clients call
// outside the versioned API. They answer with a {success, ...} envelope
// instead of the API error format and handle CORS preflight themselves.
type FunctionHandler struct {
	transactionService services.TransactionServicer
}

// NewFunctionHandler creates a new FunctionHandler.
func NewFunctionHandler(transactionService services.TransactionServicer) *FunctionHandler {
	return &FunctionHandler{transactionService: transactionService}
}

// FunctionResponse is the envelope of the standalone endpoints.
type FunctionResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func functionError(c *gin.Context, status int, msg string) {
	c.JSON(status, FunctionResponse{Success: false, Error: msg})
}

// preflight writes the CORS headers and reports whether the request was an
// OPTIONS preflight that has already been answered.
func preflight(c *gin.Context) bool {
	middleware.SetCORSHeaders(c.Writer.Header())
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusNoContent)
		return true
	}
	return false
}

// GetUserTransactions returns every transaction of the token's owner
// @Summary     Get user transactions (standalone)
// @Description All transactions of the authenticated user, newest first
// @Tags        functions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} FunctionResponse "Transactions"
// @Failure     401 {object} FunctionResponse "Missing or invalid token"
// @Failure     405 {object} FunctionResponse "Method not allowed"
// @Failure     500 {object} FunctionResponse "Server error"
// @Router      /getUserTransactions [get]
func (h *FunctionHandler) GetUserTransactions(c *gin.Context) {
	if preflight(c) {
		return
	}
	if c.Request.Method != http.MethodGet {
		functionError(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	claims, err := middleware.Authenticate(c.GetHeader("Authorization"))
	if err != nil {
		msg := middleware.MsgInvalidToken
		if errors.Is(err, middleware.ErrMissingAuthHeader) || errors.Is(err, middleware.ErrMalformedAuthHeader) {
			msg = err.Error()
		}
		functionError(c, http.StatusUnauthorized, msg)
		return
	}

	records, err := h.transactionService.GetUserTransactions(c.Request.Context(), claims.UserID, services.TransactionFilter{})
	if err != nil {
		logger.Get().Errorw("failed to fetch user transactions", "user_id", claims.UserID, "error", err)
		functionError(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}
	if records == nil {
		records = []models.Transaction{}
	}

	c.JSON(http.StatusOK, FunctionResponse{
		Success: true,
		Data:    records,
		Message: fmt.Sprintf("Successfully retrieved %d transactions", len(records)),
	})
}

// HealthCheck reports that the service is up
// @Summary     Health check (standalone)
// @Tags        functions
// @Produce     json
// @Success     200 {object} FunctionResponse "API is running"
// @Router      /healthCheck [get]
func (h *FunctionHandler) HealthCheck(c *gin.Context) {
	if preflight(c) {
		return
	}
	c.JSON(http.StatusOK, FunctionResponse{
		Success:   true,
		Message:   "API is running",
		Timestamp: dates.ISO(time.Now()),
	})
}
