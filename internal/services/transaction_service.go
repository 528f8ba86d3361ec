package services

import (
	"context"
	"io"

	"cashflow/internal/daterange"
	apperrors "cashflow/internal/errors"
	"cashflow/internal/feed"
	"cashflow/internal/ledger"
	"cashflow/internal/models"
	"cashflow/internal/repository"
	"cashflow/internal/transfer"
)

// transactionService handles transaction-related business logic. Reads go
// through the feed source so every query sees the same snapshot the live
// stream delivers; writes go to the repository and then notify the feed.
type transactionService struct {
	repo     repository.TransactionRepository
	source   feed.Source
	notifier feed.Notifier
	importer *transfer.Importer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(repo repository.TransactionRepository, source feed.Source, notifier feed.Notifier) TransactionServicer {
	return &transactionService{
		repo:     repo,
		source:   source,
		notifier: notifier,
		importer: transfer.NewImporter(repo),
	}
}

// ApplyFilter narrows records by date range, then type, then category. The
// relative order of records is preserved.
func ApplyFilter(records []models.Transaction, f TransactionFilter) []models.Transaction {
	out := daterange.Filter(records, f.Range)
	if f.Type != "" {
		out = ledger.FilterByType(out, f.Type)
	}
	if f.Category != "" {
		out = ledger.FilterByCategory(out, f.Category)
	}
	return out
}

// CreateTransaction stores a new transaction owned by userID.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, draft models.Transaction) (*models.Transaction, error) {
	tx := draft
	tx.ID = ""
	tx.UserID = userID

	if err := s.repo.Create(ctx, &tx); err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "create transaction")
	}
	s.notifier.Changed(ctx, userID)
	return &tx, nil
}

// GetUserTransactions returns the user's transactions matching filter,
// newest effective date first.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]models.Transaction, error) {
	snap, err := s.source.FetchOnce(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "list transactions")
	}
	return ApplyFilter(snap.Transactions, filter), nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	tx, err := s.repo.Get(ctx, userID, transactionID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "get transaction")
	}
	return tx, nil
}

// UpdateTransaction applies patch to one of the user's transactions.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, patch models.TransactionPatch) (*models.Transaction, error) {
	if patch.IsEmpty() {
		return s.GetTransactionByID(ctx, userID, transactionID)
	}
	tx, err := s.repo.Update(ctx, userID, transactionID, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "update transaction")
	}
	s.notifier.Changed(ctx, userID)
	return tx, nil
}

// DeleteTransaction removes one of the user's transactions.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if err := s.repo.Delete(ctx, userID, transactionID); err != nil {
		return storeError(err, apperrors.ErrTransactionNotFound, "delete transaction")
	}
	s.notifier.Changed(ctx, userID)
	return nil
}

// ExportTransactions writes the filtered transactions to w.
func (s *transactionService) ExportTransactions(ctx context.Context, userID string, filter TransactionFilter, format transfer.Format, w io.Writer) error {
	records, err := s.GetUserTransactions(ctx, userID, filter)
	if err != nil {
		return err
	}
	if err := transfer.Export(w, records, format); err != nil {
		return storeError(err, apperrors.ErrTransactionNotFound, "export transactions")
	}
	return nil
}

// ImportTransactions imports payload for userID, skipping rows that match
// an existing transaction or an earlier row of the same file.
func (s *transactionService) ImportTransactions(ctx context.Context, userID string, payload []byte, format transfer.Format) (*transfer.Result, error) {
	snap, err := s.source.FetchOnce(ctx, userID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "load import seed")
	}

	result, err := s.importer.Import(ctx, userID, snap.Transactions, payload, format)
	if err != nil {
		return nil, storeError(err, apperrors.ErrTransactionNotFound, "import transactions")
	}
	if result.Imported > 0 {
		s.notifier.Changed(ctx, userID)
	}
	return result, nil
}
