package models

import (
	"fmt"
	"strings"
	"time"
)

// AddMonthsClamped adds months to t, clamping the day to the last day of the
// target month (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CoverageEnd is the last covered day of a term starting at start.
func CoverageEnd(start time.Time, termMonths int) time.Time {
	return AddMonthsClamped(start, termMonths).AddDate(0, 0, -1)
}

// NewCoverageTerm builds the term for a product starting at start.
func NewCoverageTerm(start time.Time, termMonths int) CoverageTerm {
	return CoverageTerm{StartDate: start, EndDate: CoverageEnd(start, termMonths)}
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}
