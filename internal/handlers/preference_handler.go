package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/models"
	"cashflow/internal/services"
)

// PreferenceHandler handles per-user display settings.
type PreferenceHandler struct {
	preferenceService services.PreferenceServicer
	auditService      services.AuditServicer
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(preferenceService services.PreferenceServicer, auditService services.AuditServicer) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService, auditService: auditService}
}

// UpdatePreferenceRequest represents the settings to change
type UpdatePreferenceRequest struct {
	Theme    *models.Theme `json:"theme" binding:"omitempty,theme"`
	Currency *string       `json:"currency" binding:"omitempty,iso4217"`
}

// GetPreference returns the user's settings
// @Summary     Get preferences
// @Tags        preferences
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Preference "Preferences"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /preferences [get]
func (h *PreferenceHandler) GetPreference(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pref, err := h.preferenceService.GetPreference(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preferences": pref})
}

// UpdatePreference changes the user's settings
// @Summary     Update preferences
// @Tags        preferences
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdatePreferenceRequest true "Settings to change"
// @Success     200 {object} models.Preference "Preferences"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /preferences [put]
func (h *PreferenceHandler) UpdatePreference(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	pref, err := h.preferenceService.UpdatePreference(userID, req.Theme, req.Currency)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionUpdate, services.ResourcePreference, userID, c.ClientIP(),
		map[string]any{"theme": pref.Theme, "currency": pref.Currency})

	c.JSON(http.StatusOK, gin.H{"preferences": pref})
}
