// Package transfer imports and exports transaction lists as CSV or JSON.
package transfer

import (
	"path/filepath"
	"strings"

	apperrors "cashflow/internal/errors"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type used when serving an export.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat accepts "csv" or "json" in any case, with or without a
// leading dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", apperrors.ErrUnsupportedFileType
}

// FormatFromFilename derives the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}
