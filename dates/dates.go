// Package dates expands inclusive calendar date ranges.
package dates

import (
	"time"

	"github.com/juju/errors"
)

// Layout is the only accepted date format.
const Layout = "2006-01-02"

// Parse validates s as a YYYY-MM-DD calendar date.
func Parse(s string) (time.Time, error) {
	d, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, errors.NotValidf("date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) time.Time {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Count returns the number of days in [start, end].
func Count(start, end time.Time) int {
	start, end = truncate(start), truncate(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

// Expand returns every calendar date from start to end inclusive.
func Expand(start, end time.Time) ([]time.Time, error) {
	start, end = truncate(start), truncate(end)
	if end.Before(start) {
		return nil, errors.NotValidf("range %s..%s (end before start)", Format(start), Format(end))
	}

	out := make([]time.Time, 0, Count(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}

// ExpandStrings parses both endpoints and expands the range.
func ExpandStrings(start, end string) ([]time.Time, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, err
	}
	e, err := Parse(end)
	if err != nil {
		return nil, err
	}
	return Expand(s, e)
}

// Format renders d as YYYY-MM-DD.
func Format(d time.Time) string {
	return d.Format(Layout)
}

// truncate drops the clock and zone so stepping by AddDate is DST-proof.
func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
