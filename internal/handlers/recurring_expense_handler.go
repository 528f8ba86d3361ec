package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/models"
	"cashflow/internal/services"
)

// RecurringExpenseHandler handles recurring expense template requests.
type RecurringExpenseHandler struct {
	recurringService services.RecurringExpenseServicer
	auditService     services.AuditServicer
}

// NewRecurringExpenseHandler creates a new RecurringExpenseHandler.
func NewRecurringExpenseHandler(recurringService services.RecurringExpenseServicer, auditService services.AuditServicer) *RecurringExpenseHandler {
	return &RecurringExpenseHandler{recurringService: recurringService, auditService: auditService}
}

// CreateRecurringExpenseRequest represents the request payload for creating a template
type CreateRecurringExpenseRequest struct {
	Title       string           `json:"title" binding:"required,max=200"`
	Amount      decimal.Decimal  `json:"amount" swaggertype:"number"`
	Category    string           `json:"category" binding:"max=100"`
	Description string           `json:"description" binding:"max=1000"`
	Frequency   models.Frequency `json:"frequency" binding:"omitempty,frequency"`
}

// UpdateRecurringExpenseRequest represents a partial template update
type UpdateRecurringExpenseRequest struct {
	Title       *string           `json:"title" binding:"omitempty,min=1,max=200"`
	Amount      *decimal.Decimal  `json:"amount" swaggertype:"number"`
	Category    *string           `json:"category" binding:"omitempty,max=100"`
	Description *string           `json:"description" binding:"omitempty,max=1000"`
	Frequency   *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
}

// ApplyRecurringExpenseRequest optionally dates the created transaction
type ApplyRecurringExpenseRequest struct {
	Date *string `json:"date"`
}

// CreateRecurringExpense handles the creation of a template
// @Summary     Create a recurring expense
// @Tags        recurring-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateRecurringExpenseRequest true "Template details"
// @Success     201 {object} models.RecurringExpense "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring-expenses [post]
func (h *RecurringExpenseHandler) CreateRecurringExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	re, err := h.recurringService.CreateRecurringExpense(c.Request.Context(), userID, models.RecurringExpense{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Frequency:   req.Frequency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionCreate, services.ResourceRecurringExpense, re.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"recurringExpense": re})
}

// GetUserRecurringExpenses lists templates
// @Summary     List recurring expenses
// @Tags        recurring-expenses
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.RecurringExpense "Templates"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /recurring-expenses [get]
func (h *RecurringExpenseHandler) GetUserRecurringExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items, err := h.recurringService.GetUserRecurringExpenses(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if items == nil {
		items = []models.RecurringExpense{}
	}

	c.JSON(http.StatusOK, gin.H{"recurringExpenses": items})
}

// GetRecurringExpenseByID returns a template
// @Summary     Get a recurring expense
// @Tags        recurring-expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringExpense "Template"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /recurring-expenses/{id} [get]
func (h *RecurringExpenseHandler) GetRecurringExpenseByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	re, err := h.recurringService.GetRecurringExpenseByID(c.Request.Context(), userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurringExpense": re})
}

// UpdateRecurringExpense applies a partial update
// @Summary     Update a recurring expense
// @Tags        recurring-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                        true "Template ID"
// @Param       request body UpdateRecurringExpenseRequest true "Fields to change"
// @Success     200 {object} models.RecurringExpense "Updated template"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /recurring-expenses/{id} [put]
func (h *RecurringExpenseHandler) UpdateRecurringExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	re, err := h.recurringService.UpdateRecurringExpense(c.Request.Context(), userID, id, models.RecurringExpensePatch{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Frequency:   req.Frequency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionUpdate, services.ResourceRecurringExpense, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurringExpense": re})
}

// DeleteRecurringExpense removes a template
// @Summary     Delete a recurring expense
// @Tags        recurring-expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /recurring-expenses/{id} [delete]
func (h *RecurringExpenseHandler) DeleteRecurringExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurringExpense(c.Request.Context(), userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionDelete, services.ResourceRecurringExpense, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Recurring expense deleted successfully"})
}

// ApplyRecurringExpense records an expense from a template
// @Summary     Apply a recurring expense
// @Description Creates an expense transaction pre-filled from the template
// @Tags        recurring-expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                       true  "Template ID"
// @Param       request body ApplyRecurringExpenseRequest false "Transaction date"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /recurring-expenses/{id}/apply [post]
func (h *RecurringExpenseHandler) ApplyRecurringExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ApplyRecurringExpenseRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var applyDate time.Time
	if date != nil {
		applyDate = *date
	}

	transaction, err := h.recurringService.ApplyRecurringExpense(c.Request.Context(), userID, id, applyDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionApply, services.ResourceRecurringExpense, id, c.ClientIP(),
		map[string]any{"transaction_id": transaction.ID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}
