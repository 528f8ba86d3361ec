package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cashflow/internal/models"
)

// NewGormStore returns repositories backed by a SQL database. The caller owns db.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Transactions:      &gormTransactions{db: db},
		RecurringExpenses: &gormRecurringExpenses{db: db},
	}
}

type gormTransactions struct {
	db *gorm.DB
}

func (r *gormTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *gormTransactions) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&tx).Error
	if err != nil {
		return nil, translate(err, "get transaction")
	}
	return &tx, nil
}

func (r *gormTransactions) Update(ctx context.Context, userID, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	var updated *models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var tx models.Transaction
		if err := db.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
			return translate(err, "load transaction")
		}
		patch.Apply(&tx)
		if err := tx.Validate(); err != nil {
			return err
		}
		if err := db.Save(&tx).Error; err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		updated = &tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *gormTransactions) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	if result.Error != nil {
		return fmt.Errorf("delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormTransactions) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

type gormRecurringExpenses struct {
	db *gorm.DB
}

func (r *gormRecurringExpenses) Create(ctx context.Context, re *models.RecurringExpense) error {
	if re.Frequency == "" {
		re.Frequency = models.DefaultFrequency
	}
	if err := re.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(re).Error; err != nil {
		return fmt.Errorf("create recurring expense: %w", err)
	}
	return nil
}

func (r *gormRecurringExpenses) Get(ctx context.Context, userID, id string) (*models.RecurringExpense, error) {
	var re models.RecurringExpense
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&re).Error
	if err != nil {
		return nil, translate(err, "get recurring expense")
	}
	return &re, nil
}

func (r *gormRecurringExpenses) Update(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error) {
	var updated *models.RecurringExpense
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var re models.RecurringExpense
		if err := db.Where("id = ? AND user_id = ?", id, userID).First(&re).Error; err != nil {
			return translate(err, "load recurring expense")
		}
		patch.Apply(&re)
		if err := re.Validate(); err != nil {
			return err
		}
		if err := db.Save(&re).Error; err != nil {
			return fmt.Errorf("save recurring expense: %w", err)
		}
		updated = &re
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *gormRecurringExpenses) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.RecurringExpense{})
	if result.Error != nil {
		return fmt.Errorf("delete recurring expense: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRecurringExpenses) ListByUser(ctx context.Context, userID string) ([]models.RecurringExpense, error) {
	var items []models.RecurringExpense
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return items, nil
}

func translate(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
