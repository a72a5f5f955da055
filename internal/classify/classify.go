// Package classify decides whether an extracted booking reflects its final state.
package classify

import (
	"time"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
)

// IsIncomplete reports whether bookingDate falls strictly before yesterday
// relative to today. Such a booking should have been captured by an earlier
// daily run, so the flag marks a likely stale or partial scrape.
func IsIncomplete(bookingDate, today time.Time) bool {
	yesterday := calendar.AddDays(today, -1)
	return calendar.Day(bookingDate).Before(yesterday)
}
