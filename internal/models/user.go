package models

import "time"

// User is an authenticated principal. Every transaction, recurring expense
// and preference row is owned by exactly one user.
type User struct {
	Base
	Email               string     `gorm:"uniqueIndex;not null" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	IsActive            bool       `gorm:"default:true" json:"isActive"`
	RefreshTokenHash    string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
}
