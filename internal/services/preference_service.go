package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/models"
)

// preferenceService stores per-user display settings. Every read goes to the
// database so all replicas agree on the current settings.
type preferenceService struct {
	db *gorm.DB
}

// NewPreferenceService creates a new PreferenceServicer.
func NewPreferenceService(db *gorm.DB) PreferenceServicer {
	return &preferenceService{db: db}
}

// GetPreference returns the user's settings, or the defaults if none were saved.
func (s *preferenceService) GetPreference(userID string) (*models.Preference, error) {
	var pref models.Preference
	err := s.db.Where("user_id = ?", userID).First(&pref).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pref = models.DefaultPreference(userID)
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pref, nil
}

// UpdatePreference changes the given settings and writes them through to
// the database.
func (s *preferenceService) UpdatePreference(userID string, theme *models.Theme, currency *string) (*models.Preference, error) {
	current, err := s.GetPreference(userID)
	if err != nil {
		return nil, err
	}
	pref := *current

	if theme != nil {
		if !theme.IsValid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "theme must be light, dark, or system")
		}
		pref.Theme = *theme
	}
	if currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*currency))
		if len(code) != 3 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency must be a 3-letter ISO 4217 code")
		}
		pref.Currency = code
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"theme", "currency", "updated_at"}),
	}).Create(&pref).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &pref, nil
}
