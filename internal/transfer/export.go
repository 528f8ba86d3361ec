package transfer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cashflow/internal/dates"
	"cashflow/internal/models"
)

// csvColumns is the fixed export column order.
var csvColumns = []string{"title", "amount", "type", "category", "description", "date", "createdAt", "id"}

// Export writes records to w in the given format.
func Export(w io.Writer, records []models.Transaction, format Format) error {
	switch format {
	case FormatCSV:
		return ExportCSV(w, records)
	case FormatJSON:
		return ExportJSON(w, records)
	}
	return fmt.Errorf("export: unsupported format %q", format)
}

// ExportCSV writes a header line followed by one line per record. Every
// value is quoted, with embedded quotes doubled, whether or not it needs it.
func ExportCSV(w io.Writer, records []models.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(csvColumns, ",") + "\n"); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	values := make([]string, len(csvColumns))
	for i := range records {
		tx := &records[i]
		var date string
		if tx.Date != nil {
			date = dates.ISO(*tx.Date)
		}
		values[0] = quote(tx.Title)
		values[1] = quote(tx.Amount.String())
		values[2] = quote(string(tx.Type))
		values[3] = quote(tx.Category)
		values[4] = quote(tx.Description)
		values[5] = quote(date)
		values[6] = quote(dates.ISO(tx.CreatedAt))
		values[7] = quote(tx.ID)
		if _, err := bw.WriteString(strings.Join(values, ",") + "\n"); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportJSON writes records as a JSON array indented with two spaces.
func ExportJSON(w io.Writer, records []models.Transaction) error {
	if records == nil {
		records = []models.Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
