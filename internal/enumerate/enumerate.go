// Package enumerate generates the candidate booking identifiers a crawl run
// attempts to fetch. Everything here is pure: output depends only on inputs.
package enumerate

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
)

// SequenceWidth is the zero-padded width of the per-day sequence number.
const SequenceWidth = 3

// MaxPerDayLimit is the largest cap that still fits SequenceWidth digits.
const MaxPerDayLimit = 999

// IDPlaceholder is replaced by the candidate identifier in URL templates.
const IDPlaceholder = "{id}"

// Candidates returns the ordered identifiers for one run: the known
// identifiers of the seed day followed by maxPerDay generated candidates for
// every day from the resume cursor up to, but excluding, today.
//
// A non-empty known set means the resume day was already seeded, so the
// cursor starts on the following day. Otherwise resume itself is scanned.
func Candidates(resume time.Time, known []string, today time.Time, maxPerDay int) []string {
	cursor := calendar.Day(resume)
	if len(known) > 0 {
		cursor = calendar.AddDays(cursor, 1)
	}
	end := calendar.Day(today)

	days := 0
	if maxPerDay > 0 && cursor.Before(end) {
		days = int(end.Sub(cursor).Hours()/24) + 1
	}
	out := make([]string, 0, len(known)+days*max(maxPerDay, 0))
	out = append(out, known...)
	if maxPerDay <= 0 {
		return out
	}

	for ; cursor.Before(end); cursor = calendar.AddDays(cursor, 1) {
		prefix := calendar.FormatCompact(cursor)
		for n := 1; n <= maxPerDay; n++ {
			out = append(out, Identifier(prefix, n))
		}
	}
	return out
}

// Identifier joins a YYYYMMDD prefix and a sequence number.
func Identifier(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceWidth, n)
}

// Sample keeps only the last k identifiers. k <= 0 disables sampling.
func Sample(ids []string, k int) []string {
	if k <= 0 || k >= len(ids) {
		return ids
	}
	return ids[len(ids)-k:]
}

// URL renders the fetch URL for a candidate. Templates without a placeholder
// get the identifier appended.
func URL(template, id string) string {
	if strings.Contains(template, IDPlaceholder) {
		return strings.ReplaceAll(template, IDPlaceholder, id)
	}
	return template + id
}
