package transfer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "cashflow/internal/errors"
)

// Row is one raw imported record keyed by field name. CSV values are always
// strings; JSON values keep their decoded type, with numbers as json.Number.
type Row map[string]any

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes payload according to format.
func Parse(payload []byte, format Format) ([]Row, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(payload)
	case FormatJSON:
		return ParseJSON(payload)
	}
	return nil, apperrors.ErrUnsupportedFileType
}

// ParseJSON decodes a JSON array. Elements that are not objects are kept as
// nil rows so row numbering matches the file and validation reports them.
func ParseJSON(payload []byte) ([]Row, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedImport, fmt.Errorf("decode json array: %w", err))
	}

	rows := make([]Row, 0, len(raw))
	for _, msg := range raw {
		var row Row
		d := json.NewDecoder(bytes.NewReader(msg))
		d.UseNumber()
		if err := d.Decode(&row); err != nil {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCSV reads a header line followed by data lines. Blank lines are
// skipped and values are mapped to header names by position.
func ParseCSV(payload []byte) ([]Row, error) {
	payload = bytes.TrimPrefix(payload, utf8BOM)

	r := csv.NewReader(bytes.NewReader(payload))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedImport, fmt.Errorf("read csv header: %w", err))
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedImport, fmt.Errorf("read csv line: %w", err))
		}
		if isBlank(record) {
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i >= len(record) || name == "" {
				continue
			}
			row[name] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
