package services

import (
	"context"
	"io"
	"time"

	"cashflow/internal/daterange"
	"cashflow/internal/ledger"
	"cashflow/internal/models"
	"cashflow/internal/pagination"
	"cashflow/internal/transfer"

	"github.com/shopspring/decimal"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID string, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// TransactionFilter holds the optional list and report filters. They are
// applied in order: date range, type, category.
type TransactionFilter struct {
	Range    daterange.Range
	Type     models.TransactionType
	Category string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, draft models.Transaction) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, patch models.TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	ExportTransactions(ctx context.Context, userID string, filter TransactionFilter, format transfer.Format, w io.Writer) error
	ImportTransactions(ctx context.Context, userID string, payload []byte, format transfer.Format) (*transfer.Result, error)
}

// RecurringExpenseServicer defines the contract for recurring expense templates.
type RecurringExpenseServicer interface {
	CreateRecurringExpense(ctx context.Context, userID string, draft models.RecurringExpense) (*models.RecurringExpense, error)
	GetUserRecurringExpenses(ctx context.Context, userID string) ([]models.RecurringExpense, error)
	GetRecurringExpenseByID(ctx context.Context, userID, id string) (*models.RecurringExpense, error)
	UpdateRecurringExpense(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error)
	DeleteRecurringExpense(ctx context.Context, userID, id string) error
	// ApplyRecurringExpense stores a new expense transaction drafted from
	// the template. A zero date leaves the transaction undated.
	ApplyRecurringExpense(ctx context.Context, userID, id string, date time.Time) (*models.Transaction, error)
}

// Summary is the aggregated view of a filtered transaction list.
type Summary struct {
	Totals     ledger.Totals          `json:"totals"`
	Net        decimal.Decimal        `json:"net" swaggertype:"number"`
	Count      int                    `json:"count"`
	Categories []string               `json:"categories"`
	Breakdown  []ledger.CategoryTotal `json:"breakdown"`
	Preset     daterange.Preset       `json:"preset"`
	StartDate  *time.Time             `json:"startDate,omitempty"`
	EndDate    *time.Time             `json:"endDate,omitempty"`
}

// PresetRange is a named date range resolved for a given day.
type PresetRange struct {
	Preset    daterange.Preset `json:"preset"`
	StartDate *time.Time       `json:"startDate,omitempty"`
	EndDate   *time.Time       `json:"endDate,omitempty"`
}

// ReportServicer defines the contract for aggregated reports.
type ReportServicer interface {
	GetSummary(ctx context.Context, userID string, filter TransactionFilter, today time.Time) (*Summary, error)
	GetPresets(today time.Time) []PresetRange
}

// PreferenceServicer defines the contract for per-user display settings.
type PreferenceServicer interface {
	GetPreference(userID string) (*models.Preference, error)
	UpdatePreference(userID string, theme *models.Theme, currency *string) (*models.Preference, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID string, action, resourceType string, resourceID string, ipAddress string, changes map[string]any)
	GetUserAuditLogs(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
