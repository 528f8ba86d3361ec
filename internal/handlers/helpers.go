package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cashflow/internal/daterange"
	"cashflow/internal/dates"
	apperrors "cashflow/internal/errors"
	"cashflow/internal/logger"
	"cashflow/internal/models"
	"cashflow/internal/services"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString("userID")
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a non-empty path parameter.
func parsePathID(c *gin.Context, param string) (string, error) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseOptionalDate parses a request date through the date normalizer. An
// absent or empty value yields nil.
func parseOptionalDate(s *string, field string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, ok := dates.ParseString(*s)
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field)
	}
	return &t, nil
}

// parseTransactionFilter reads the shared list and report query parameters.
// A preset other than custom takes precedence over explicit dates.
func parseTransactionFilter(c *gin.Context, today time.Time) (services.TransactionFilter, error) {
	var f services.TransactionFilter

	preset := daterange.Preset(c.Query("preset"))
	if preset != "" && preset != daterange.PresetCustom {
		r, err := daterange.PresetRange(preset, today)
		if err != nil {
			return f, err
		}
		f.Range = r
	} else {
		r, err := daterange.ParseRange(c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			return f, err
		}
		f.Range = r
	}

	if v := c.Query("type"); v != "" {
		t := models.TransactionType(v)
		if !t.IsValid() {
			return f, apperrors.ErrInvalidTransactionType
		}
		f.Type = t
	}
	f.Category = c.Query("category")
	return f, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
