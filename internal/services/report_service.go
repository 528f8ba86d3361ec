package services

import (
	"context"
	"time"

	"cashflow/internal/daterange"
	"cashflow/internal/ledger"
)

// reportService builds aggregated views on top of the transaction list.
type reportService struct {
	transactions TransactionServicer
}

// NewReportService creates a new ReportServicer.
func NewReportService(transactions TransactionServicer) ReportServicer {
	return &reportService{transactions: transactions}
}

// GetSummary totals the filtered transactions and reports which preset the
// range corresponds to relative to today.
func (s *reportService) GetSummary(ctx context.Context, userID string, filter TransactionFilter, today time.Time) (*Summary, error) {
	records, err := s.transactions.GetUserTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	totals := ledger.ComputeTotals(records)
	return &Summary{
		Totals:     totals,
		Net:        totals.Net(),
		Count:      len(records),
		Categories: ledger.UniqueCategories(records),
		Breakdown:  ledger.CategoryBreakdown(records),
		Preset:     daterange.DetectPreset(filter.Range, today),
		StartDate:  filter.Range.Start,
		EndDate:    filter.Range.End,
	}, nil
}

// GetPresets resolves every named preset for today. Custom has no fixed
// range and is omitted.
func (s *reportService) GetPresets(today time.Time) []PresetRange {
	out := make([]PresetRange, 0, len(daterange.Presets))
	for _, p := range daterange.Presets {
		r, err := daterange.PresetRange(p, today)
		if err != nil {
			continue
		}
		out = append(out, PresetRange{Preset: p, StartDate: r.Start, EndDate: r.End})
	}
	return out
}
