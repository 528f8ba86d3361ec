package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers so exported files stay importable by
	// any client that expects numeric amounts.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType represents the direction of a transaction. The stored
// amount is always a positive magnitude; the type carries the sign.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid reports whether t is exactly one of the supported types.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// UncategorizedCategory is the grouping key for records without a category.
const UncategorizedCategory = "Uncategorized"

// Field-level validation errors shared by transactions and recurring expenses.
var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
	ErrInvalidType     = errors.New("type must be income or expense")
	ErrInvalidFreq     = errors.New("frequency must be daily, weekly, monthly, or yearly")
	ErrMissingOwner    = errors.New("user id is required")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrDescriptionLong = errors.New("description too long (max 1000 characters)")
)

// IsValidationError reports whether err is one of the field-level errors above.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyTitle, ErrInvalidAmount, ErrAmountPrecision, ErrInvalidType, ErrInvalidFreq,
		ErrMissingOwner, ErrTitleTooLong, ErrDescriptionLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Transaction represents a single income or expense entry.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"userId"`
	Title       string          `gorm:"not null" json:"title"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount" swaggertype:"number"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
}

// EffectiveDate returns the user-assigned date when present and the
// creation timestamp otherwise. All sorting, filtering and grouping goes
// through this method.
func (t *Transaction) EffectiveDate() time.Time {
	if t.Date != nil && !t.Date.IsZero() {
		return *t.Date
	}
	return t.CreatedAt
}

// CategoryOrDefault returns the category used for grouping.
func (t *Transaction) CategoryOrDefault() string {
	return NormalizeCategory(t.Category)
}

// NormalizeCategory maps an absent or blank category to UncategorizedCategory.
func NormalizeCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return UncategorizedCategory
	}
	return category
}

// Validate checks the field-level rules of a transaction.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return ErrMissingOwner
	}
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if len(t.Description) > 1000 {
		return ErrDescriptionLong
	}
	return nil
}

// AmountScale is the number of decimal places amounts are stored with.
const AmountScale = 2

// ValidateAmount rejects non-positive amounts and amounts finer than
// AmountScale, which storage would otherwise round.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(AmountScale)) {
		return ErrAmountPrecision
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	return nil
}

// TransactionPatch is a partial update. Nil fields are left unchanged;
// ClearDate removes the user-assigned date so the record falls back to its
// creation time.
type TransactionPatch struct {
	Title       *string
	Amount      *decimal.Decimal
	Type        *TransactionType
	Category    *string
	Description *string
	Date        *time.Time
	ClearDate   bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Type == nil && p.Category == nil &&
		p.Description == nil && p.Date == nil && !p.ClearDate
}

// Apply writes the patch onto t. The owner and identifier are never touched.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ClearDate {
		t.Date = nil
	} else if p.Date != nil {
		d := *p.Date
		t.Date = &d
	}
}
