package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashflow/internal/errors"
	"cashflow/internal/feed"
	"cashflow/internal/models"
	"cashflow/internal/pagination"
	"cashflow/internal/services"
	"cashflow/internal/transfer"
)

// streamHeartbeat is how often an idle snapshot stream sends a ping event.
const streamHeartbeat = 30 * time.Second

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
	source             feed.Source
	importMaxBytes     int64
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	auditService services.AuditServicer,
	source feed.Source,
	importMaxBytes int64,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		auditService:       auditService,
		source:             source,
		importMaxBytes:     importMaxBytes,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Title       string                 `json:"title" binding:"required,max=200"`
	Amount      decimal.Decimal        `json:"amount" swaggertype:"number"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Category    string                 `json:"category" binding:"max=100"`
	Description string                 `json:"description" binding:"max=1000"`
	Date        *string                `json:"date"`
}

// UpdateTransactionRequest represents a partial update. Omitted fields are
// unchanged; an empty date string clears the date.
type UpdateTransactionRequest struct {
	Title       *string                 `json:"title" binding:"omitempty,min=1,max=200"`
	Amount      *decimal.Decimal        `json:"amount" swaggertype:"number"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Category    *string                 `json:"category" binding:"omitempty,max=100"`
	Description *string                 `json:"description" binding:"omitempty,max=1000"`
	Date        *string                 `json:"date"`
}

// ImportResponse reports the outcome of an import.
type ImportResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Message  string   `json:"message"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseOptionalDate(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, models.Transaction{
		Title:       req.Title,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionCreate, services.ResourceTransaction, transaction.ID, c.ClientIP(),
		map[string]any{"type": transaction.Type, "amount": transaction.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions lists the user's transactions
// @Summary     List transactions
// @Description Filtered transactions ordered by date (or creation time when undated), newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Inclusive start day"
// @Param       end_date   query string false "Inclusive end day"
// @Param       preset     query string false "Named range, e.g. last-30-days"
// @Param       type       query string false "income or expense"
// @Param       category   query string false "Category, Uncategorized for none"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	records, err := h.transactionService.GetUserTransactions(c.Request.Context(), userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.Slice(records, page))
}

// GetTransactionByID returns a single transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction applies a partial update
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	patch := models.TransactionPatch{
		Title:       req.Title,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != nil {
		if strings.TrimSpace(*req.Date) == "" {
			patch.ClearDate = true
		} else {
			patch.Date, err = parseOptionalDate(req.Date, "date")
			if err != nil {
				respondWithError(c, err)
				return
			}
		}
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, id, patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionUpdate, services.ResourceTransaction, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]string "Deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionDelete, services.ResourceTransaction, id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// ExportTransactions downloads the filtered transactions
// @Summary     Export transactions
// @Description Download transactions as CSV or JSON; accepts the same filters as listing
// @Tags        transactions
// @Produce     text/csv
// @Produce     json
// @Security    BearerAuth
// @Param       format query string false "csv (default) or json"
// @Success     200 {file} file "Export file"
// @Failure     400 {object} ErrorResponse "Unsupported format or invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/export [get]
func (h *TransactionHandler) ExportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	format, err := transfer.ParseFormat(c.DefaultQuery("format", string(transfer.FormatCSV)))
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now()
	filter, err := parseTransactionFilter(c, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.transactionService.ExportTransactions(c.Request.Context(), userID, filter, format, &buf); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionExport, services.ResourceTransaction, "", c.ClientIP(),
		map[string]any{"format": format})

	filename := fmt.Sprintf("transactions-%s.%s", now.Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// ImportTransactions imports a CSV or JSON file
// @Summary     Import transactions
// @Description Upload a multipart "file", or send the raw file as the body with ?format=csv|json. Duplicate rows are skipped and invalid rows reported.
// @Tags        transactions
// @Accept      mpfd
// @Produce     json
// @Security    BearerAuth
// @Param       file   formData file   false "CSV or JSON file"
// @Param       format query    string false "csv or json, required for raw bodies"
// @Success     200 {object} ImportResponse "Import outcome"
// @Failure     400 {object} ErrorResponse "Unsupported or malformed file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /transactions/import [post]
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	payload, format, err := h.readImport(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ImportTransactions(c.Request.Context(), userID, payload, format)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActionImport, services.ResourceTransaction, "", c.ClientIP(),
		map[string]any{"format": format, "imported": result.Imported, "skipped": result.Skipped, "errors": len(result.Errors)})

	c.JSON(http.StatusOK, ImportResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Errors:   result.Errors,
		Message:  result.Summary(),
	})
}

// readImport returns the uploaded bytes and their format. The format query
// parameter wins over the uploaded file name.
func (h *TransactionHandler) readImport(c *gin.Context) ([]byte, transfer.Format, error) {
	if h.importMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.importMaxBytes)
	}

	var (
		body     io.Reader
		filename string
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, "", importReadError(err, "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		defer f.Close()
		body, filename = f, fh.Filename
	} else {
		body = c.Request.Body
	}

	var (
		format transfer.Format
		err    error
	)
	switch {
	case c.Query("format") != "":
		format, err = transfer.ParseFormat(c.Query("format"))
	case filename != "":
		format, err = transfer.FormatFromFilename(filename)
	default:
		err = apperrors.ErrUnsupportedFileType
	}
	if err != nil {
		return nil, "", err
	}

	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, "", importReadError(err, "could not read upload")
	}
	return payload, format, nil
}

func importReadError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.ErrImportTooLarge
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, msg)
}

// StreamTransactions pushes full transaction snapshots as server-sent events
// @Summary     Stream transactions
// @Description Sends a "snapshot" event with every transaction immediately and after each change. A newer snapshot replaces one the client has not read yet.
// @Tags        transactions
// @Produce     text/event-stream
// @Security    BearerAuth
// @Success     200 {object} feed.Snapshot "Snapshot events"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/stream [get]
func (h *TransactionHandler) StreamTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	mailbox := feed.NewMailbox()
	unsubscribe, err := h.source.Subscribe(ctx, userID, mailbox.Put)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap := <-mailbox.C():
			c.SSEvent("snapshot", snap)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
