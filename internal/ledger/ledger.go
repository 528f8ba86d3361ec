// Package ledger aggregates transaction lists: totals, type and category
// filters, category grouping and date ordering. Every function is pure and
// returns new slices; inputs are never modified.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"cashflow/internal/models"
)

// Totals is the gross summary of a record list. TotalAmount is the sum of all
// amounts regardless of type; use Net for income minus expense.
type Totals struct {
	TotalAmount  decimal.Decimal `json:"totalAmount" swaggertype:"number"`
	TotalIncome  decimal.Decimal `json:"totalIncome" swaggertype:"number"`
	TotalExpense decimal.Decimal `json:"totalExpense" swaggertype:"number"`
}

// Net returns income minus expense.
func (t Totals) Net() decimal.Decimal {
	return t.TotalIncome.Sub(t.TotalExpense)
}

// ComputeTotals sums amounts overall and per type.
func ComputeTotals(records []models.Transaction) Totals {
	totals := Totals{
		TotalAmount:  decimal.Zero,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for i := range records {
		amount := records[i].Amount
		totals.TotalAmount = totals.TotalAmount.Add(amount)
		switch records[i].Type {
		case models.TransactionTypeIncome:
			totals.TotalIncome = totals.TotalIncome.Add(amount)
		case models.TransactionTypeExpense:
			totals.TotalExpense = totals.TotalExpense.Add(amount)
		}
	}
	return totals
}

// FilterByType keeps records of the given type, in input order.
func FilterByType(records []models.Transaction, txType models.TransactionType) []models.Transaction {
	return filter(records, func(t *models.Transaction) bool { return t.Type == txType })
}

// FilterByCategory keeps records whose normalized category equals category,
// in input order. Filtering by "Uncategorized" selects records without one.
func FilterByCategory(records []models.Transaction, category string) []models.Transaction {
	want := models.NormalizeCategory(category)
	return filter(records, func(t *models.Transaction) bool { return t.CategoryOrDefault() == want })
}

func filter(records []models.Transaction, keep func(*models.Transaction) bool) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// UniqueCategories returns the distinct normalized categories, sorted.
func UniqueCategories(records []models.Transaction) []string {
	seen := make(map[string]struct{}, len(records))
	categories := make([]string, 0)
	for i := range records {
		c := records[i].CategoryOrDefault()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// CategoryGroup is the set of records sharing one normalized category.
type CategoryGroup struct {
	Category string               `json:"category"`
	Records  []models.Transaction `json:"records"`
}

// GroupByCategory groups records by normalized category. Groups appear in
// order of first occurrence and keep their records in input order.
func GroupByCategory(records []models.Transaction) []CategoryGroup {
	index := make(map[string]int)
	groups := make([]CategoryGroup, 0)
	for i := range records {
		c := records[i].CategoryOrDefault()
		pos, ok := index[c]
		if !ok {
			pos = len(groups)
			index[c] = pos
			groups = append(groups, CategoryGroup{Category: c})
		}
		groups[pos].Records = append(groups[pos].Records, records[i])
	}
	return groups
}

// CategoryTotal summarizes one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total" swaggertype:"number"`
	Count    int             `json:"count"`
	Share    float64         `json:"share"`
}

// CategoryBreakdown totals each category and its share of the gross total,
// in order of first occurrence.
func CategoryBreakdown(records []models.Transaction) []CategoryTotal {
	gross := ComputeTotals(records).TotalAmount
	groups := GroupByCategory(records)
	out := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		sum := ComputeTotals(g.Records).TotalAmount
		share := 0.0
		if gross.IsPositive() {
			share, _ = sum.Div(gross).Round(4).Float64()
		}
		out = append(out, CategoryTotal{
			Category: g.Category,
			Total:    sum,
			Count:    len(g.Records),
			Share:    share,
		})
	}
	return out
}

// SortByDateDesc returns a copy ordered by effective date, newest first.
// Records with equal dates keep their relative order.
func SortByDateDesc(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate().After(out[j].EffectiveDate())
	})
	return out
}
