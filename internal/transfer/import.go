package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/dates"
	"cashflow/internal/logger"
	"cashflow/internal/models"
)

// requiredFields must be present and non-empty on every imported row.
var requiredFields = []string{"title", "amount", "type", "category"}

// summaryErrorLimit is how many row errors Summary spells out.
const summaryErrorLimit = 3

// Creator persists one transaction. Implementations assign the ID.
type Creator interface {
	Create(ctx context.Context, tx *models.Transaction) error
}

// Result is the outcome of one import run. Skipped counts duplicates only;
// rejected rows are reported in Errors.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Summary renders the result as a single line for display.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d, skipped %d duplicate(s)", r.Imported, r.Skipped)
	if len(r.Errors) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, ", %d error(s): ", len(r.Errors))
	shown := r.Errors
	if len(shown) > summaryErrorLimit {
		shown = shown[:summaryErrorLimit]
	}
	b.WriteString(strings.Join(shown, "; "))
	if rest := len(r.Errors) - len(shown); rest > 0 {
		fmt.Fprintf(&b, " and %d more", rest)
	}
	return b.String()
}

// Signature identifies a record for duplicate detection. Day is the local
// calendar day of the record's own date, or empty when it has none.
type Signature struct {
	Title    string
	Amount   string
	Type     models.TransactionType
	Category string
	Day      string
}

// SignatureOf computes the duplicate-detection key of tx. The creation time
// is deliberately not part of it.
func SignatureOf(tx *models.Transaction) Signature {
	var day string
	if tx.Date != nil {
		day = dates.DayKey(*tx.Date)
	}
	return Signature{
		Title:    tx.Title,
		Amount:   tx.Amount.String(),
		Type:     tx.Type,
		Category: tx.Category,
		Day:      day,
	}
}

// Importer validates parsed rows and creates the accepted ones one at a
// time, in file order. There is no batch transaction: rows created before a
// failure stay persisted.
type Importer struct {
	store Creator
}

// NewImporter creates an Importer that writes through store.
func NewImporter(store Creator) *Importer {
	return &Importer{store: store}
}

// Import parses payload and imports it for userID. existing seeds duplicate
// detection. The returned error is non-nil only when the payload as a whole
// cannot be parsed.
func (im *Importer) Import(ctx context.Context, userID string, existing []models.Transaction, payload []byte, format Format) (*Result, error) {
	rows, err := Parse(payload, format)
	if err != nil {
		return nil, err
	}

	seen := make(map[Signature]struct{}, len(existing)+len(rows))
	for i := range existing {
		seen[SignatureOf(&existing[i])] = struct{}{}
	}

	log := logger.Named("import")
	result := &Result{Errors: []string{}}
	for i, row := range rows {
		n := i + 1
		tx, err := RowToTransaction(row, userID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", n, err))
			continue
		}

		sig := SignatureOf(tx)
		if _, dup := seen[sig]; dup {
			result.Skipped++
			continue
		}

		if err := im.store.Create(ctx, tx); err != nil {
			log.Warnw("import row create failed", "row", n, "user_id", userID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: failed to save transaction", n))
			continue
		}
		seen[sig] = struct{}{}
		result.Imported++
	}

	log.Infow("import finished",
		"user_id", userID,
		"format", format,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// RowToTransaction validates a raw row and converts it into an unsaved
// transaction owned by userID. Identifiers, owners and timestamps present in
// the row are ignored.
func RowToTransaction(row Row, userID string) (*models.Transaction, error) {
	if row == nil {
		return nil, fmt.Errorf("expected an object")
	}

	var missing []string
	for _, field := range requiredFields {
		if stringValue(row[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	amount, err := parseAmount(row["amount"])
	if err != nil {
		return nil, err
	}

	txType := models.TransactionType(stringValue(row["type"]))
	if !txType.IsValid() {
		return nil, fmt.Errorf("invalid type %q (must be income or expense)", txType)
	}

	tx := &models.Transaction{
		UserID:      userID,
		Title:       stringValue(row["title"]),
		Amount:      amount,
		Type:        txType,
		Category:    stringValue(row["category"]),
		Description: stringValue(row["description"]),
	}

	if raw, ok := row["date"]; ok && !isEmptyValue(raw) {
		d, ok := dates.Parse(raw)
		if !ok {
			return nil, fmt.Errorf("invalid date %v", raw)
		}
		tx.Date = &d
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func parseAmount(v any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch n := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	case float64:
		d = decimal.NewFromFloat(n)
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(n))
	default:
		err = fmt.Errorf("unsupported value")
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %v", v)
	}
	if err := models.ValidateAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// stringValue renders scalar row values as trimmed strings.
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return dates.ISO(s)
	}
	return ""
}

func isEmptyValue(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	}
	return false
}
