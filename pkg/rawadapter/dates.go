package rawadapter

import (
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30. The accepted
// range guards against amounts landing in a date column.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	serialMin = -60000
	serialMax = 120000
)

var textLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"2 January 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2006-01-02T15:04:05Z07:00",
}

var monthLayouts = []string{
	"Jan 2006",
	"January 2006",
	"Jan-2006",
	"Jan'06",
	"2006-01",
	"01/2006",
	"2006-01-02",
}

// ParseDate interprets a raw date cell. Numeric values in the serial
// range are day offsets from the spreadsheet epoch; everything else is
// tried against the known text layouts.
func ParseDate(s string, monthCtx time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < serialMin || f > serialMax {
			return time.Time{}, false
		}
		days := int(f)
		frac := f - float64(days)
		d := serialEpoch.AddDate(0, 0, days)
		if frac != 0 {
			d = d.Add(time.Duration(frac * 24 * float64(time.Hour)))
		}
		return d, true
	}

	for _, layout := range textLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}

	// Day-and-month only, year from the job context.
	if !monthCtx.IsZero() {
		for _, layout := range []string{"2 Jan", "Jan 2", "2-Jan", "02 Jan"} {
			if d, err := time.Parse(layout, s); err == nil {
				return time.Date(monthCtx.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}

// ParseMonth parses the control sheet's Month cell ("Feb 2025",
// "2025-02").
func ParseMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range monthLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
