package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"cashflow/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// NewTestTransaction builds an unsaved transaction with a unique title.
func NewTestTransaction(userID string, txType models.TransactionType, amount string) *models.Transaction {
	return &models.Transaction{
		UserID:   userID,
		Title:    fmt.Sprintf("Transaction %d", nextID()),
		Amount:   decimal.RequireFromString(amount),
		Type:     txType,
		Category: "general",
	}
}

// CreateTestTransaction stores a transaction with the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()

	tx := NewTestTransaction(userID, txType, amount)
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestTransactionOn stores a transaction with the given category and date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID, category string, date time.Time) *models.Transaction {
	t.Helper()

	tx := NewTestTransaction(userID, models.TransactionTypeExpense, "10")
	tx.Category = category
	tx.Date = &date
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringExpense stores a monthly recurring expense.
func CreateTestRecurringExpense(t *testing.T, db *gorm.DB, userID string) *models.RecurringExpense {
	t.Helper()

	re := &models.RecurringExpense{
		UserID:    userID,
		Title:     fmt.Sprintf("Subscription %d", nextID()),
		Amount:    decimal.RequireFromString("9.99"),
		Category:  "subscriptions",
		Frequency: models.FrequencyMonthly,
	}
	if err := db.Create(re).Error; err != nil {
		t.Fatalf("failed to create test recurring expense: %v", err)
	}
	return re
}
