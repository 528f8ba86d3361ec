package daterange

import (
	"time"

	"cashflow/internal/dates"
	apperrors "cashflow/internal/errors"
)

// Preset names a range relative to today.
type Preset string

const (
	PresetLast7Days   Preset = "last-7-days"
	PresetLast30Days  Preset = "last-30-days"
	PresetLast3Months Preset = "last-3-months"
	PresetLast6Months Preset = "last-6-months"
	PresetThisYear    Preset = "this-year"
	PresetCustom      Preset = "custom"
	PresetAllTime     Preset = "all-time"
)

// Presets lists the presets PresetRange can expand, in display order.
var Presets = []Preset{
	PresetLast7Days,
	PresetLast30Days,
	PresetLast3Months,
	PresetLast6Months,
	PresetThisYear,
}

// PresetRange expands p into a concrete range ending today.
func PresetRange(p Preset, today time.Time) (Range, error) {
	end := today
	var start time.Time
	switch p {
	case PresetLast7Days:
		start = today.AddDate(0, 0, -7)
	case PresetLast30Days:
		start = today.AddDate(0, 0, -30)
	case PresetLast3Months:
		start = today.AddDate(0, -3, 0)
	case PresetLast6Months:
		start = today.AddDate(0, -6, 0)
	case PresetThisYear:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	case PresetAllTime:
		return Range{}, nil
	default:
		return Range{}, apperrors.ErrUnknownPreset
	}
	return Range{Start: &start, End: &end}, nil
}

// DetectPreset guesses which preset produced r. It is a best-effort label
// for display, not an inverse of PresetRange: the rules below are checked in
// order and the first match wins.
//
//   - 6 to 8 days apart: last-7-days
//   - 29 to 31 days apart: last-30-days
//   - month numbers 3 or 9 apart, ignoring the year: last-3-months
//   - month numbers exactly 6 apart: last-6-months
//   - start on Jan 1 of today's year: this-year
//
// A range with neither bound is all-time; anything else is custom.
func DetectPreset(r Range, today time.Time) Preset {
	if r.IsEmpty() {
		return PresetAllTime
	}
	if r.Start == nil || r.End == nil {
		return PresetCustom
	}
	start := dates.StartOfDay(r.Start.In(time.Local))
	end := dates.StartOfDay(r.End.In(time.Local))

	days := int(end.Sub(start).Hours()/24 + 0.5)
	switch {
	case days >= 6 && days <= 8:
		return PresetLast7Days
	case days >= 29 && days <= 31:
		return PresetLast30Days
	}

	months := int(end.Month()) - int(start.Month())
	if months < 0 {
		months = -months
	}
	switch months {
	case 3, 9:
		return PresetLast3Months
	case 6:
		return PresetLast6Months
	}

	local := today.In(time.Local)
	if start.Year() == local.Year() && start.Month() == time.January && start.Day() == 1 {
		return PresetThisYear
	}
	return PresetCustom
}
