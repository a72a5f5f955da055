// Package calendar owns every date-string format used by the crawler:
// partition markers, candidate identifiers and storage keys.
package calendar

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	// DayLayout formats partition dates and storage keys.
	DayLayout = "2006-01-02"
	// CompactLayout prefixes candidate identifiers.
	CompactLayout = "20060102"
)

// Day truncates t to midnight UTC of its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar day of now as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// AddDays shifts a day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format(DayLayout)
}

// FormatCompact renders a day as YYYYMMDD.
func FormatCompact(day time.Time) string {
	return day.Format(CompactLayout)
}

// MarkerDay extracts the partition date from a manifest marker. A marker is a
// file name, object path or URL whose base name minus extension is YYYY-MM-DD.
func MarkerDay(marker string) (time.Time, error) {
	p := strings.TrimSpace(marker)
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return time.Time{}, fmt.Errorf("marker %q has no date component", marker)
	}
	return ParseDay(base)
}
