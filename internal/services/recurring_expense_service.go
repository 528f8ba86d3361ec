package services

import (
	"context"
	"sort"
	"time"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/models"
	"cashflow/internal/repository"
)

// recurringExpenseService manages recurring expense templates. Templates are
// never charged automatically; ApplyRecurringExpense is the only way one
// becomes a transaction.
type recurringExpenseService struct {
	repo         repository.RecurringExpenseRepository
	transactions TransactionServicer
}

// NewRecurringExpenseService creates a new RecurringExpenseServicer.
func NewRecurringExpenseService(repo repository.RecurringExpenseRepository, transactions TransactionServicer) RecurringExpenseServicer {
	return &recurringExpenseService{repo: repo, transactions: transactions}
}

// CreateRecurringExpense stores a new template owned by userID.
func (s *recurringExpenseService) CreateRecurringExpense(ctx context.Context, userID string, draft models.RecurringExpense) (*models.RecurringExpense, error) {
	re := draft
	re.ID = ""
	re.UserID = userID
	if re.Frequency == "" {
		re.Frequency = models.DefaultFrequency
	}

	if err := s.repo.Create(ctx, &re); err != nil {
		return nil, storeError(err, apperrors.ErrRecurringExpenseNotFound, "create recurring expense")
	}
	return &re, nil
}

// GetUserRecurringExpenses lists the user's templates, newest first.
func (s *recurringExpenseService) GetUserRecurringExpenses(ctx context.Context, userID string) ([]models.RecurringExpense, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringExpenseNotFound, "list recurring expenses")
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// GetRecurringExpenseByID retrieves one of the user's templates.
func (s *recurringExpenseService) GetRecurringExpenseByID(ctx context.Context, userID, id string) (*models.RecurringExpense, error) {
	re, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringExpenseNotFound, "get recurring expense")
	}
	return re, nil
}

// UpdateRecurringExpense applies patch to one of the user's templates.
func (s *recurringExpenseService) UpdateRecurringExpense(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error) {
	if patch.IsEmpty() {
		return s.GetRecurringExpenseByID(ctx, userID, id)
	}
	re, err := s.repo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringExpenseNotFound, "update recurring expense")
	}
	return re, nil
}

// DeleteRecurringExpense removes one of the user's templates.
func (s *recurringExpenseService) DeleteRecurringExpense(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return storeError(err, apperrors.ErrRecurringExpenseNotFound, "delete recurring expense")
	}
	return nil
}

// ApplyRecurringExpense drafts an expense from the template and stores it.
func (s *recurringExpenseService) ApplyRecurringExpense(ctx context.Context, userID, id string, date time.Time) (*models.Transaction, error) {
	re, err := s.GetRecurringExpenseByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.transactions.CreateTransaction(ctx, userID, re.ToTransactionDraft(date))
}
