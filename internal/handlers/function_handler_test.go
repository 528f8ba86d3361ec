package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cashflow/internal/middleware"
	"cashflow/internal/models"
	"cashflow/internal/services"
)

func setupFunctionRouter(handler *FunctionHandler) *gin.Engine {
	r := gin.New()
	r.Any("/getUserTransactions", handler.GetUserTransactions)
	r.Any("/healthCheck", handler.HealthCheck)
	return r
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.GenerateAccessToken(&models.User{Base: models.Base{ID: userID}, Email: "fn@example.com"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return "Bearer " + token
}

func doFunctionRequest(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestFunctionHandler_GetUserTransactions(t *testing.T) {
	t.Run("returns the caller's transactions", func(t *testing.T) {
		var gotUser string
		svc := &mockTransactionService{
			listFn: func(_ context.Context, userID string, _ services.TransactionFilter) ([]models.Transaction, error) {
				gotUser = userID
				return []models.Transaction{{Base: models.Base{ID: "a"}}, {Base: models.Base{ID: "b"}}}, nil
			},
		}
		r := setupFunctionRouter(NewFunctionHandler(svc))

		rec := doFunctionRequest(r, "GET", "/getUserTransactions", bearer(t, testUserID))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUser != testUserID {
			t.Errorf("expected user %s, got %s", testUserID, gotUser)
		}
		result := parseJSON(t, rec)
		if result["success"] != true {
			t.Error("expected success=true")
		}
		if result["message"] != "Successfully retrieved 2 transactions" {
			t.Errorf("unexpected message %v", result["message"])
		}
		if data := result["data"].([]interface{}); len(data) != 2 {
			t.Errorf("expected 2 transactions, got %d", len(data))
		}
		if rec.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("expected CORS headers on the response")
		}
	})

	t.Run("returns an empty array for a user with no transactions", func(t *testing.T) {
		svc := &mockTransactionService{
			listFn: func(context.Context, string, services.TransactionFilter) ([]models.Transaction, error) {
				return nil, nil
			},
		}
		r := setupFunctionRouter(NewFunctionHandler(svc))

		rec := doFunctionRequest(r, "GET", "/getUserTransactions", bearer(t, testUserID))

		data, ok := parseJSON(t, rec)["data"].([]interface{})
		if !ok || len(data) != 0 {
			t.Errorf("expected an empty data array, got %v", data)
		}
	})

	tests := []struct {
		name    string
		method  string
		auth    string
		status  int
		message string
	}{
		{"wrong method", "POST", "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"missing header", "GET", "", http.StatusUnauthorized, middleware.MsgMissingAuthHeader},
		{"malformed header", "GET", "Token abc", http.StatusUnauthorized, middleware.MsgMalformedAuthHeader},
		{"bad token", "GET", "Bearer not-a-jwt", http.StatusUnauthorized, middleware.MsgInvalidToken},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			r := setupFunctionRouter(NewFunctionHandler(&mockTransactionService{}))

			rec := doFunctionRequest(r, tt.method, "/getUserTransactions", tt.auth)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			result := parseJSON(t, rec)
			if result["success"] != false || result["error"] != tt.message {
				t.Errorf("unexpected envelope: %v", result)
			}
		})
	}

	t.Run("answers preflight without authentication", func(t *testing.T) {
		r := setupFunctionRouter(NewFunctionHandler(&mockTransactionService{}))

		rec := doFunctionRequest(r, "OPTIONS", "/getUserTransactions", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("expected CORS headers on preflight")
		}
	})

	t.Run("hides store failures", func(t *testing.T) {
		svc := &mockTransactionService{
			listFn: func(context.Context, string, services.TransactionFilter) ([]models.Transaction, error) {
				return nil, errors.New("connection reset")
			},
		}
		r := setupFunctionRouter(NewFunctionHandler(svc))

		rec := doFunctionRequest(r, "GET", "/getUserTransactions", bearer(t, testUserID))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if parseJSON(t, rec)["error"] != "Failed to retrieve transactions" {
			t.Error("expected the generic failure message")
		}
	})
}

func TestFunctionHandler_HealthCheck(t *testing.T) {
	r := setupFunctionRouter(NewFunctionHandler(&mockTransactionService{}))

	for _, method := range []string{"GET", "POST"} {
		rec := doFunctionRequest(r, method, "/healthCheck", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
		result := parseJSON(t, rec)
		if result["success"] != true || result["message"] != "API is running" {
			t.Errorf("%s: unexpected envelope %v", method, result)
		}
		if ts, _ := result["timestamp"].(string); ts == "" {
			t.Errorf("%s: expected a timestamp", method)
		}
	}

	rec := doFunctionRequest(r, "OPTIONS", "/healthCheck", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
}
