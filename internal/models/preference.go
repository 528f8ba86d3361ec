package models

import "time"

// Theme is the UI color scheme a user picked.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid reports whether t is a supported theme.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Preference holds per-user display settings. The currency is a display
// label only; amounts are never converted.
type Preference struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"userId"`
	Theme     Theme     `gorm:"not null;default:'light'" json:"theme"`
	Currency  string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPreference returns the settings used before a user saves any.
func DefaultPreference(userID string) Preference {
	return Preference{UserID: userID, Theme: ThemeLight, Currency: "USD"}
}
