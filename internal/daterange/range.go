// Package daterange narrows transaction lists to an inclusive calendar-day
// window and maps between named presets and concrete ranges.
package daterange

import (
	"strings"
	"time"

	"cashflow/internal/dates"
	apperrors "cashflow/internal/errors"
	"cashflow/internal/models"
)

// Range is an optional start/end day pair. A nil bound is open.
type Range struct {
	Start *time.Time `json:"startDate,omitempty"`
	End   *time.Time `json:"endDate,omitempty"`
}

// IsEmpty reports whether neither bound is set.
func (r Range) IsEmpty() bool {
	return r.Start == nil && r.End == nil
}

// Bounds returns the instants the range covers: 00:00:00.000 local time of
// the start day and 23:59:59.999 local time of the end day. Open bounds are
// returned as zero times.
func (r Range) Bounds() (from, to time.Time) {
	if r.Start != nil {
		from = dates.StartOfDay(r.Start.In(time.Local))
	}
	if r.End != nil {
		to = dates.EndOfDay(r.End.In(time.Local))
	}
	return from, to
}

// Contains reports whether t falls inside the range. A zero t only matches
// an empty range.
func (r Range) Contains(t time.Time) bool {
	if r.IsEmpty() {
		return true
	}
	if t.IsZero() {
		return false
	}
	from, to := r.Bounds()
	if r.Start != nil && t.Before(from) {
		return false
	}
	if r.End != nil && t.After(to) {
		return false
	}
	return true
}

// Filter keeps records whose effective date lies inside r, in input order.
// An empty range returns every record.
func Filter(records []models.Transaction, r Range) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for i := range records {
		if r.Contains(records[i].EffectiveDate()) {
			out = append(out, records[i])
		}
	}
	return out
}

// ParseRange builds a Range from query-string bounds. Blank values leave
// the bound open.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if s := strings.TrimSpace(start); s != "" {
		t, ok := dates.ParseString(s)
		if !ok {
			return Range{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid start_date")
		}
		r.Start = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, ok := dates.ParseString(s)
		if !ok {
			return Range{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid end_date")
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil {
		from, to := r.Bounds()
		if from.After(to) {
			return Range{}, apperrors.ErrInvalidDateRange
		}
	}
	return r, nil
}
