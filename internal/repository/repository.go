// Package repository persists transactions and recurring expenses. Every
// method is scoped by owner: a record that exists but belongs to another
// user is reported as ErrNotFound.
package repository

import (
	"context"
	"errors"

	"cashflow/internal/models"
)

// ErrNotFound is returned when no record matches the owner and identifier.
var ErrNotFound = errors.New("record not found")

// TransactionRepository stores transactions.
type TransactionRepository interface {
	// Create assigns the ID and creation time and stores tx.
	Create(ctx context.Context, tx *models.Transaction) error
	// Update applies patch to the stored record, validates the result and
	// saves it. The owner is never changed.
	Update(ctx context.Context, userID, id string, patch models.TransactionPatch) (*models.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*models.Transaction, error)
	// ListByUser returns every transaction of userID in no particular order.
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

// RecurringExpenseRepository stores recurring expense templates.
type RecurringExpenseRepository interface {
	Create(ctx context.Context, r *models.RecurringExpense) error
	Update(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*models.RecurringExpense, error)
	ListByUser(ctx context.Context, userID string) ([]models.RecurringExpense, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Transactions      TransactionRepository
	RecurringExpenses RecurringExpenseRepository
	// Close releases backend resources. It may be nil.
	Close func(ctx context.Context) error
}
