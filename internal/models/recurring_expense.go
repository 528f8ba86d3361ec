package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring expense is expected to occur.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// DefaultFrequency is applied when a recurring expense is created without one.
const DefaultFrequency = FrequencyMonthly

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringExpense is a template used to pre-fill new expense transactions.
// Nothing charges it automatically; Frequency is informational.
type RecurringExpense struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"userId"`
	Title       string          `gorm:"not null" json:"title"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount" swaggertype:"number"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Frequency   Frequency       `gorm:"not null;default:'monthly'" json:"frequency"`
}

// Validate checks the field-level rules of a recurring expense. An empty
// frequency is accepted and defaulted by the caller.
func (r *RecurringExpense) Validate() error {
	if r.UserID == "" {
		return ErrMissingOwner
	}
	if err := validateTitle(r.Title); err != nil {
		return err
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if r.Frequency != "" && !r.Frequency.IsValid() {
		return ErrInvalidFreq
	}
	if len(r.Description) > 1000 {
		return ErrDescriptionLong
	}
	return nil
}

// ToTransactionDraft seeds an unsaved expense transaction from the template.
// A zero date leaves the draft undated so it falls back to its creation time.
func (r *RecurringExpense) ToTransactionDraft(date time.Time) Transaction {
	draft := Transaction{
		UserID:      r.UserID,
		Title:       r.Title,
		Amount:      r.Amount,
		Type:        TransactionTypeExpense,
		Category:    r.Category,
		Description: r.Description,
	}
	if !date.IsZero() {
		d := date
		draft.Date = &d
	}
	return draft
}

// RecurringExpensePatch is a partial update of a recurring expense.
type RecurringExpensePatch struct {
	Title       *string
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Frequency   *Frequency
}

// IsEmpty reports whether the patch changes nothing.
func (p RecurringExpensePatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.Description == nil && p.Frequency == nil
}

// Apply writes the patch onto r.
func (p RecurringExpensePatch) Apply(r *RecurringExpense) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
}
