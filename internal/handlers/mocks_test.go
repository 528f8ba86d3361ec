package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cashflow/internal/feed"
	"cashflow/internal/logger"
	"cashflow/internal/models"
	"cashflow/internal/pagination"
	"cashflow/internal/services"
	"cashflow/internal/transfer"
	"cashflow/internal/validator"
)

const testUserID = "0190a3c4-5b6d-7e8f-9a0b-1c2d3e4f5a6b"

// --- mock services ---

type mockUserService struct {
	createUserFn            func(email, password, firstName, lastName string) (*models.User, error)
	getUserByEmailFn        func(email string) (*models.User, error)
	getUserByIDFn           func(id string) (*models.User, error)
	verifyPasswordFn        func(user *models.User, password string) bool
	attemptLoginFn          func(email, password string) (*models.User, error)
	storeRefreshTokenHashFn func(userID string, tokenHash string) error
	getRefreshTokenHashFn   func(userID string) (string, error)
}

func (m *mockUserService) CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, firstName, lastName)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(email)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) StoreRefreshTokenHash(userID string, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(userID string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

type auditEntry struct {
	userID, action, resourceType, resourceID string
}

type mockAuditService struct {
	entries        []auditEntry
	getAuditLogsFn func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Log(userID string, action, resourceType string, resourceID string, _ string, _ map[string]any) {
	m.entries = append(m.entries, auditEntry{userID, action, resourceType, resourceID})
}

func (m *mockAuditService) GetUserAuditLogs(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	if m.getAuditLogsFn != nil {
		return m.getAuditLogsFn(userID, page)
	}
	resp := pagination.NewPageResponse[models.AuditLog](nil, 1, 20, 0)
	return &resp, nil
}

type mockTransactionService struct {
	createFn func(ctx context.Context, userID string, draft models.Transaction) (*models.Transaction, error)
	listFn   func(ctx context.Context, userID string, filter services.TransactionFilter) ([]models.Transaction, error)
	getFn    func(ctx context.Context, userID, id string) (*models.Transaction, error)
	updateFn func(ctx context.Context, userID, id string, patch models.TransactionPatch) (*models.Transaction, error)
	deleteFn func(ctx context.Context, userID, id string) error
	exportFn func(ctx context.Context, userID string, filter services.TransactionFilter, format transfer.Format, w io.Writer) error
	importFn func(ctx context.Context, userID string, payload []byte, format transfer.Format) (*transfer.Result, error)
}

func (m *mockTransactionService) CreateTransaction(ctx context.Context, userID string, draft models.Transaction) (*models.Transaction, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, draft)
	}
	draft.ID = "tx-1"
	draft.UserID = userID
	return &draft, nil
}

func (m *mockTransactionService) GetUserTransactions(ctx context.Context, userID string, filter services.TransactionFilter) ([]models.Transaction, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return &models.Transaction{Base: models.Base{ID: id}, UserID: userID}, nil
}

func (m *mockTransactionService) UpdateTransaction(ctx context.Context, userID, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, patch)
	}
	tx := &models.Transaction{Base: models.Base{ID: id}, UserID: userID}
	patch.Apply(tx)
	return tx, nil
}

func (m *mockTransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockTransactionService) ExportTransactions(ctx context.Context, userID string, filter services.TransactionFilter, format transfer.Format, w io.Writer) error {
	if m.exportFn != nil {
		return m.exportFn(ctx, userID, filter, format, w)
	}
	return transfer.Export(w, nil, format)
}

func (m *mockTransactionService) ImportTransactions(ctx context.Context, userID string, payload []byte, format transfer.Format) (*transfer.Result, error) {
	if m.importFn != nil {
		return m.importFn(ctx, userID, payload, format)
	}
	return &transfer.Result{Errors: []string{}}, nil
}

type mockRecurringExpenseService struct {
	createFn func(ctx context.Context, userID string, draft models.RecurringExpense) (*models.RecurringExpense, error)
	listFn   func(ctx context.Context, userID string) ([]models.RecurringExpense, error)
	getFn    func(ctx context.Context, userID, id string) (*models.RecurringExpense, error)
	updateFn func(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error)
	deleteFn func(ctx context.Context, userID, id string) error
	applyFn  func(ctx context.Context, userID, id string, date time.Time) (*models.Transaction, error)
}

func (m *mockRecurringExpenseService) CreateRecurringExpense(ctx context.Context, userID string, draft models.RecurringExpense) (*models.RecurringExpense, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, draft)
	}
	draft.ID = "re-1"
	draft.UserID = userID
	return &draft, nil
}

func (m *mockRecurringExpenseService) GetUserRecurringExpenses(ctx context.Context, userID string) ([]models.RecurringExpense, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockRecurringExpenseService) GetRecurringExpenseByID(ctx context.Context, userID, id string) (*models.RecurringExpense, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return &models.RecurringExpense{Base: models.Base{ID: id}, UserID: userID}, nil
}

func (m *mockRecurringExpenseService) UpdateRecurringExpense(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, patch)
	}
	re := &models.RecurringExpense{Base: models.Base{ID: id}, UserID: userID}
	patch.Apply(re)
	return re, nil
}

func (m *mockRecurringExpenseService) DeleteRecurringExpense(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockRecurringExpenseService) ApplyRecurringExpense(ctx context.Context, userID, id string, date time.Time) (*models.Transaction, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, userID, id, date)
	}
	return &models.Transaction{Base: models.Base{ID: "tx-1"}, UserID: userID, Type: models.TransactionTypeExpense}, nil
}

type mockReportService struct {
	summaryFn func(ctx context.Context, userID string, filter services.TransactionFilter, today time.Time) (*services.Summary, error)
	presetsFn func(today time.Time) []services.PresetRange
}

func (m *mockReportService) GetSummary(ctx context.Context, userID string, filter services.TransactionFilter, today time.Time) (*services.Summary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID, filter, today)
	}
	return &services.Summary{}, nil
}

func (m *mockReportService) GetPresets(today time.Time) []services.PresetRange {
	if m.presetsFn != nil {
		return m.presetsFn(today)
	}
	return nil
}

type mockPreferenceService struct {
	getFn    func(userID string) (*models.Preference, error)
	updateFn func(userID string, theme *models.Theme, currency *string) (*models.Preference, error)
}

func (m *mockPreferenceService) GetPreference(userID string) (*models.Preference, error) {
	if m.getFn != nil {
		return m.getFn(userID)
	}
	pref := models.DefaultPreference(userID)
	return &pref, nil
}

func (m *mockPreferenceService) UpdatePreference(userID string, theme *models.Theme, currency *string) (*models.Preference, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, theme, currency)
	}
	pref := models.DefaultPreference(userID)
	return &pref, nil
}

// mockSource hands one empty snapshot to each subscriber unless
// subscribeFn is set.
type mockSource struct {
	subscribeFn func(ctx context.Context, userID string, fn func(feed.Snapshot)) (func(), error)
}

func (m *mockSource) Subscribe(ctx context.Context, userID string, fn func(feed.Snapshot)) (func(), error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, userID, fn)
	}
	fn(feed.Snapshot{UserID: userID, Transactions: []models.Transaction{}})
	return func() {}, nil
}

func (m *mockSource) FetchOnce(_ context.Context, userID string) (feed.Snapshot, error) {
	return feed.Snapshot{UserID: userID}, nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
