// Package output renders crawl rows and fans them out to configured sinks.
package output

import (
	"context"
	"errors"
	"strconv"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// Header is the column order of every rendered row.
var Header = []string{
	"Age_At_Booking",
	"Bail_Amount",
	"Booking_Date",
	"Booking_Id",
	"Charges",
	"Court_Date",
	"Court_Location",
	"Gender",
	"Inmate_Hash",
	"Height",
	"Housing_Location",
	"Race",
	"Weight",
	"Incomplete",
}

// Fields renders a row in Header order.
func Fields(row crawler.OutputRow) []string {
	r := row.Record
	return []string{
		r.AgeAtBooking,
		r.BailAmount,
		calendar.FormatDay(r.BookingDate),
		r.BookingID,
		r.Charges,
		r.CourtDate,
		r.CourtLocation,
		r.Gender,
		r.InmateHash,
		r.Height,
		r.HousingLocation,
		r.Race,
		r.Weight,
		strconv.FormatBool(row.Incomplete),
	}
}

// Map renders a row keyed by Header names.
func Map(row crawler.OutputRow) map[string]string {
	fields := Fields(row)
	out := make(map[string]string, len(Header))
	for i, name := range Header {
		out[name] = fields[i]
	}
	return out
}

// Multi writes each row to every sink.
type Multi []crawler.RowSink

// Write forwards the row to all sinks and joins their failures.
func (m Multi) Write(ctx context.Context, row crawler.OutputRow) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
