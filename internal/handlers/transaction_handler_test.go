package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/feed"
	"cashflow/internal/models"
	"cashflow/internal/services"
	"cashflow/internal/transfer"
)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	g := r.Group("/transactions", injectUserID(testUserID))
	g.POST("", handler.CreateTransaction)
	g.GET("", handler.GetUserTransactions)
	g.GET("/stream", handler.StreamTransactions)
	g.GET("/export", handler.ExportTransactions)
	g.POST("/import", handler.ImportTransactions)
	g.GET("/:id", handler.GetTransactionByID)
	g.PUT("/:id", handler.UpdateTransaction)
	g.DELETE("/:id", handler.DeleteTransaction)
	return r
}

func newTestTransactionHandler(svc *mockTransactionService, audit *mockAuditService) *TransactionHandler {
	return NewTransactionHandler(svc, audit, &mockSource{}, 1<<20)
}

func TestTransactionHandler_Create(t *testing.T) {
	t.Run("returns 201 with the stored transaction", func(t *testing.T) {
		var got models.Transaction
		svc := &mockTransactionService{
			createFn: func(_ context.Context, userID string, draft models.Transaction) (*models.Transaction, error) {
				got = draft
				draft.ID = "tx-1"
				draft.UserID = userID
				return &draft, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(newTestTransactionHandler(svc, audit))

		rec := doRequest(r, "POST", "/transactions",
			`{"title":"Coffee","amount":4.5,"type":"expense","category":"food","date":"2024-03-05"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Amount.Equal(decimal.RequireFromString("4.5")) {
			t.Errorf("expected amount 4.5, got %s", got.Amount)
		}
		if got.Date == nil || got.Date.Day() != 5 || got.Date.Month() != time.March {
			t.Errorf("expected date 2024-03-05, got %v", got.Date)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["id"] != "tx-1" || tx["userId"] != testUserID {
			t.Errorf("unexpected transaction: %v", tx)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditActionCreate {
			t.Errorf("expected one create audit entry, got %+v", audit.entries)
		}
	})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing title", `{"amount":1,"type":"expense"}`, "INVALID_INPUT"},
		{"unknown type", `{"title":"x","amount":1,"type":"refund"}`, "INVALID_INPUT"},
		{"unparseable date", `{"title":"x","amount":1,"type":"income","date":"someday"}`, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(newTestTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), tt.code)
		})
	}

	t.Run("passes service validation errors through", func(t *testing.T) {
		svc := &mockTransactionService{
			createFn: func(context.Context, string, models.Transaction) (*models.Transaction, error) {
				return nil, apperrors.ErrInvalidAmount
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"title":"x","amount":-3,"type":"expense"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})
}

func TestTransactionHandler_List(t *testing.T) {
	t.Run("paginates and forwards filters", func(t *testing.T) {
		var filter services.TransactionFilter
		svc := &mockTransactionService{
			listFn: func(_ context.Context, _ string, f services.TransactionFilter) ([]models.Transaction, error) {
				filter = f
				return []models.Transaction{
					{Base: models.Base{ID: "a"}}, {Base: models.Base{ID: "b"}}, {Base: models.Base{ID: "c"}},
				}, nil
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET",
			"/transactions?type=income&category=work&start_date=2024-01-01&end_date=2024-01-31&page=2&page_size=2", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if filter.Type != models.TransactionTypeIncome || filter.Category != "work" {
			t.Errorf("unexpected filter: %+v", filter)
		}
		if filter.Range.Start == nil || filter.Range.End == nil {
			t.Fatalf("expected both range bounds, got %+v", filter.Range)
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 1 || data[0].(map[string]interface{})["id"] != "c" {
			t.Errorf("expected page 2 to hold only c, got %v", data)
		}
	})

	t.Run("resolves presets", func(t *testing.T) {
		var filter services.TransactionFilter
		svc := &mockTransactionService{
			listFn: func(_ context.Context, _ string, f services.TransactionFilter) ([]models.Transaction, error) {
				filter = f
				return nil, nil
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?preset=last-7-days", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if filter.Range.Start == nil || filter.Range.End == nil {
			t.Errorf("expected preset to set both bounds, got %+v", filter.Range)
		}
	})

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"inverted range", "start_date=2024-02-01&end_date=2024-01-01", "INVALID_DATE_RANGE"},
		{"unknown preset", "preset=last-decade", "UNKNOWN_PRESET"},
		{"unknown type", "type=refund", "INVALID_TRANSACTION_TYPE"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(newTestTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "GET", "/transactions?"+tt.query, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), tt.code)
		})
	}
}

func TestTransactionHandler_GetUpdateDelete(t *testing.T) {
	t.Run("get returns 404 for a foreign id", func(t *testing.T) {
		svc := &mockTransactionService{
			getFn: func(context.Context, string, string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/other", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("update builds a patch and clears an empty date", func(t *testing.T) {
		var patch models.TransactionPatch
		svc := &mockTransactionService{
			updateFn: func(_ context.Context, userID, id string, p models.TransactionPatch) (*models.Transaction, error) {
				patch = p
				return &models.Transaction{Base: models.Base{ID: id}, UserID: userID}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(newTestTransactionHandler(svc, audit))

		rec := doRequest(r, "PUT", "/transactions/tx-9", `{"title":"Rent","date":""}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if patch.Title == nil || *patch.Title != "Rent" {
			t.Errorf("expected title patch, got %+v", patch.Title)
		}
		if !patch.ClearDate || patch.Date != nil {
			t.Errorf("expected date to be cleared, got %+v", patch)
		}
		if patch.Amount != nil || patch.Type != nil {
			t.Error("omitted fields must stay nil")
		}
		if len(audit.entries) != 1 || audit.entries[0].resourceID != "tx-9" {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("delete returns the confirmation message", func(t *testing.T) {
		var deleted string
		svc := &mockTransactionService{
			deleteFn: func(_ context.Context, _, id string) error {
				deleted = id
				return nil
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/transactions/tx-3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != "tx-3" {
			t.Errorf("expected tx-3 deleted, got %q", deleted)
		}
		if parseJSON(t, rec)["message"] != "Transaction deleted successfully" {
			t.Error("unexpected delete message")
		}
	})
}

func TestTransactionHandler_Export(t *testing.T) {
	t.Run("serves csv as an attachment by default", func(t *testing.T) {
		var format transfer.Format
		svc := &mockTransactionService{
			exportFn: func(_ context.Context, _ string, _ services.TransactionFilter, f transfer.Format, w io.Writer) error {
				format = f
				_, err := io.WriteString(w, "Date,Title\n")
				return err
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/export", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if format != transfer.FormatCSV {
			t.Errorf("expected csv, got %q", format)
		}
		disposition := rec.Header().Get("Content-Disposition")
		if !strings.HasPrefix(disposition, `attachment; filename="transactions-`) || !strings.HasSuffix(disposition, `.csv"`) {
			t.Errorf("unexpected Content-Disposition %q", disposition)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("unexpected Content-Type %q", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != "Date,Title\n" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		r := setupTransactionRouter(newTestTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/export?format=xlsx", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNSUPPORTED_FILE_TYPE")
	})
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestTransactionHandler_Import(t *testing.T) {
	result := &transfer.Result{Imported: 2, Skipped: 1, Errors: []string{}}

	t.Run("accepts a multipart file and detects the format from its name", func(t *testing.T) {
		var gotFormat transfer.Format
		var gotPayload string
		svc := &mockTransactionService{
			importFn: func(_ context.Context, _ string, payload []byte, f transfer.Format) (*transfer.Result, error) {
				gotFormat, gotPayload = f, string(payload)
				return result, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(newTestTransactionHandler(svc, audit))

		body, contentType := multipartUpload(t, "bank.json", `[{"title":"x"}]`)
		req := httptest.NewRequest("POST", "/transactions/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFormat != transfer.FormatJSON || gotPayload != `[{"title":"x"}]` {
			t.Errorf("unexpected import input: %q %q", gotFormat, gotPayload)
		}
		resp := parseJSON(t, rec)
		if resp["imported"] != float64(2) || resp["skipped"] != float64(1) {
			t.Errorf("unexpected counts: %v", resp)
		}
		if resp["message"] != result.Summary() {
			t.Errorf("expected message %q, got %v", result.Summary(), resp["message"])
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditActionImport {
			t.Errorf("unexpected audit entries: %+v", audit.entries)
		}
	})

	t.Run("accepts a raw body with an explicit format", func(t *testing.T) {
		var gotFormat transfer.Format
		svc := &mockTransactionService{
			importFn: func(_ context.Context, _ string, _ []byte, f transfer.Format) (*transfer.Result, error) {
				gotFormat = f
				return result, nil
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/import?format=csv", "Title,Amount,Type\nx,1,income\n")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotFormat != transfer.FormatCSV {
			t.Errorf("expected csv, got %q", gotFormat)
		}
	})

	t.Run("rejects a raw body without a format", func(t *testing.T) {
		r := setupTransactionRouter(newTestTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/import", "a,b\n")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNSUPPORTED_FILE_TYPE")
	})

	t.Run("rejects an unsupported file extension", func(t *testing.T) {
		r := setupTransactionRouter(newTestTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		body, contentType := multipartUpload(t, "bank.xlsx", "binary")
		req := httptest.NewRequest("POST", "/transactions/import", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNSUPPORTED_FILE_TYPE")
	})

	t.Run("returns 413 when the body exceeds the limit", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}, &mockSource{}, 16)
		r := setupTransactionRouter(handler)

		rec := doRequest(r, "POST", "/transactions/import?format=csv", strings.Repeat("x", 64))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
		}
		assertErrorCode(t, parseJSON(t, rec), "IMPORT_TOO_LARGE")
	})

	t.Run("passes malformed payload errors through", func(t *testing.T) {
		svc := &mockTransactionService{
			importFn: func(context.Context, string, []byte, transfer.Format) (*transfer.Result, error) {
				return nil, apperrors.ErrMalformedImport
			},
		}
		r := setupTransactionRouter(newTestTransactionHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions/import?format=json", "{not json")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "MALFORMED_IMPORT")
	})
}

func TestTransactionHandler_Stream(t *testing.T) {
	source := &mockSource{
		subscribeFn: func(ctx context.Context, userID string, fn func(feed.Snapshot)) (func(), error) {
			fn(feed.Snapshot{UserID: userID, Transactions: []models.Transaction{{Base: models.Base{ID: "tx-1"}}}})
			return func() {}, nil
		},
	}
	handler := NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}, source, 0)
	r := setupTransactionRouter(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	req := httptest.NewRequest("GET", "/transactions/stream", nil).WithContext(ctx)
	rec := gin.CreateTestResponseRecorder()
	r.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event:snapshot") {
		t.Fatalf("expected a snapshot event, got %q", body)
	}
	if !strings.Contains(body, `"id":"tx-1"`) {
		t.Errorf("expected snapshot payload, got %q", body)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream") {
		t.Errorf("unexpected Content-Type %q", rec.Header().Get("Content-Type"))
	}
}
