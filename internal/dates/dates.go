// Package dates converts the date representations found in stored and
// imported records into time.Time. Every other package consumes only the
// normalized form.
package dates

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/logger"
)

// Placeholder is rendered in place of a date that cannot be displayed.
const Placeholder = "N/A"

// ISOLayout is the instant format used for exports: UTC with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// DayLayout is the day-precision format used for signatures and query strings.
const DayLayout = "2006-01-02"

// Fallback selects what Normalize returns for values that cannot be parsed.
type Fallback int

const (
	// FallbackEpoch is used for sort and filter keys: unknown dates sort oldest.
	FallbackEpoch Fallback = iota
	// FallbackNow is used for user-visible labels.
	FallbackNow
)

// Timer is implemented by wrapper types that convert lazily, such as
// BSON datetimes.
type Timer interface {
	Time() time.Time
}

// ProtoTimer is implemented by protobuf-style timestamps.
type ProtoTimer interface {
	AsTime() time.Time
}

// displaySeparator splits display-formatted strings such as
// "January 5, 2024 at 10:00:00 AM UTC+1".
const displaySeparator = " at "

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	DayLayout,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"01/02/2006",
}

// Parse converts v into a point in time. Bare numbers are epoch
// milliseconds. The boolean is false when v is absent or not a recognized
// date.
func Parse(v any) (time.Time, bool) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, false
	case Timer:
		return nonZero(d.Time())
	case ProtoTimer:
		return nonZero(d.AsTime())
	case time.Time:
		return nonZero(d)
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return nonZero(*d)
	case string:
		return ParseString(d)
	case *string:
		if d == nil {
			return time.Time{}, false
		}
		return ParseString(*d)
	case map[string]any:
		return parseTimestampMap(d)
	case int64:
		return fromEpochMillis(float64(d))
	case int32:
		return fromEpochMillis(float64(d))
	case int:
		return fromEpochMillis(float64(d))
	case float64:
		return fromEpochMillis(d)
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpochMillis(f)
	}
	return time.Time{}, false
}

// fromEpochMillis reads a bare number as milliseconds since the Unix epoch.
// Non-positive values are not dates.
func fromEpochMillis(ms float64) (time.Time, bool) {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

// ParseString parses an ISO-like or display-formatted date string. Only the
// part before a literal " at " is considered.
func ParseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, displaySeparator); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize returns the parsed value of v, or the fallback when v cannot be parsed.
func Normalize(v any, fallback Fallback) time.Time {
	if t, ok := Parse(v); ok {
		return t
	}
	if fallback == FallbackNow {
		return time.Now()
	}
	return time.Unix(0, 0).UTC()
}

// Format renders v with layout, or Placeholder when v is not a date.
func Format(v any, layout string) string {
	t, ok := Parse(v)
	if !ok {
		if v != nil {
			logger.Named("dates").Warnw("unparseable date", "value", v)
		}
		return Placeholder
	}
	return t.Format(layout)
}

// ISO renders t as an export instant, or "" for the zero time.
func ISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// StartOfDay returns 00:00:00.000 of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayKey truncates t to its local calendar day, or "" for the zero time.
func DayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(DayLayout)
}

func nonZero(t time.Time) (time.Time, bool) {
	return t, !t.IsZero()
}

// parseTimestampMap handles document-store timestamps exported as JSON,
// e.g. {"seconds": 1704412800, "nanoseconds": 0}.
func parseTimestampMap(m map[string]any) (time.Time, bool) {
	secs, ok := numberField(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := numberField(m, "nanoseconds", "_nanoseconds")
	return time.Unix(int64(secs), int64(nanos)), true
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch n := m[k].(type) {
		case float64:
			return n, !math.IsNaN(n) && !math.IsInf(n, 0)
		case int64:
			return float64(n), true
		case int32:
			return float64(n), true
		case int:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			return f, err == nil
		}
	}
	return 0, false
}
