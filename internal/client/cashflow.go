// Package client provides an HTTP client for the CashFlow API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"cashflow/internal/models"
	"cashflow/internal/services"
)

// APIError is a non-2xx response. Code and Message come from the API error
// body when it has one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("unexpected status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// ImportResult is the outcome of an import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

// Health is the standalone health check envelope.
type Health struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ListOptions narrows a transaction listing or summary. Empty fields are
// omitted from the query.
type ListOptions struct {
	StartDate string
	EndDate   string
	Preset    string
	Type      string
	Category  string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("start_date", o.StartDate)
	set("end_date", o.EndDate)
	set("preset", o.Preset)
	set("type", o.Type)
	set("category", o.Category)
	return q
}

// CashFlowClient communicates with the CashFlow API.
type CashFlowClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewCashFlowClient creates a new CashFlow API client. token is sent as a
// bearer token and may be empty for public endpoints.
func NewCashFlowClient(baseURL, token string, httpClient *http.Client) *CashFlowClient {
	return &CashFlowClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Health calls the standalone health check.
func (c *CashFlowClient) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.getJSON(ctx, "/healthCheck", nil, &result); err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return &result, nil
}

// ListTransactions fetches every matching transaction, newest first,
// following pagination until the last page.
func (c *CashFlowClient) ListTransactions(ctx context.Context, opts ListOptions) ([]models.Transaction, error) {
	var all []models.Transaction
	for page := 1; ; page++ {
		q := opts.values()
		q.Set("page", fmt.Sprint(page))
		q.Set("page_size", "100")

		var result struct {
			Data       []models.Transaction `json:"data"`
			TotalPages int                  `json:"totalPages"`
		}
		if err := c.getJSON(ctx, "/api/v1/transactions", q, &result); err != nil {
			return nil, fmt.Errorf("listing transactions: %w", err)
		}
		all = append(all, result.Data...)
		if page >= result.TotalPages {
			return all, nil
		}
	}
}

// Summary fetches totals and category breakdown.
func (c *CashFlowClient) Summary(ctx context.Context, opts ListOptions) (*services.Summary, error) {
	var result services.Summary
	if err := c.getJSON(ctx, "/api/v1/reports/summary", opts.values(), &result); err != nil {
		return nil, fmt.Errorf("fetching summary: %w", err)
	}
	return &result, nil
}

// Export streams an export in format ("csv" or "json") to w.
func (c *CashFlowClient) Export(ctx context.Context, format string, opts ListOptions, w io.Writer) error {
	q := opts.values()
	q.Set("format", format)

	resp, err := c.do(ctx, http.MethodGet, "/api/v1/transactions/export", q, nil, "")
	if err != nil {
		return fmt.Errorf("exporting transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Import uploads a file as multipart form data. The server derives the
// format from filename.
func (c *CashFlowClient) Import(ctx context.Context, filename string, content io.Reader) (*ImportResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/transactions/import", nil, &body, mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("importing transactions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding import response: %w", err)
	}
	return &result, nil
}

func (c *CashFlowClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, q, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends the request and returns the response when the status is 2xx.
// Otherwise the body is closed and an *APIError returned.
func (c *CashFlowClient) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.NewDecoder(resp.Body).Decode(&payload) == nil {
		apiErr.Code, apiErr.Message = payload.Error.Code, payload.Error.Message
	}
	return nil, apiErr
}
