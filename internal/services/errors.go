package services

import (
	"errors"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/logger"
	"cashflow/internal/models"
	"cashflow/internal/repository"
)

// storeError converts a repository or validation error into an AppError.
// notFound is returned for records that are missing or owned by someone else.
func storeError(err error, notFound *apperrors.AppError, op string) error {
	var appErr *apperrors.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, models.ErrInvalidType):
		return apperrors.ErrInvalidTransactionType
	case errors.Is(err, models.ErrInvalidAmount):
		return apperrors.ErrInvalidAmount
	case errors.Is(err, models.ErrAmountPrecision):
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, "Amount must have at most 2 decimal places")
	case errors.Is(err, models.ErrInvalidFreq):
		return apperrors.ErrInvalidFrequency
	case models.IsValidationError(err):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	logger.Get().Errorw("storage operation failed", "op", op, "error", err)
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}
