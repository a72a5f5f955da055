package crawler

import (
	"net/http"
	"time"
)

// SeedDay is the most recent completed crawl partition.
type SeedDay struct {
	// Date is the partition day, or the fallback start date on a first run.
	Date time.Time
	// Identifiers are the booking ids already recorded for Date.
	Identifiers []string
	// Marker is the manifest entry the day was resolved from; empty on fallback.
	Marker string
}

// Fallback reports whether the seed came from the configured start date.
func (s SeedDay) Fallback() bool {
	return s.Marker == ""
}

// FetchRequest captures everything needed to fetch one candidate page.
type FetchRequest struct {
	Identifier string
	URL        string
	Headers    http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// RawPage pairs the unmodified bytes of a fetch with its candidate id.
type RawPage struct {
	Identifier string
	URL        string
	StatusCode int
	Body       []byte
}

// ExtractedRecord holds the typed fields read from a booking page.
type ExtractedRecord struct {
	BookingID       string
	BookingDate     time.Time
	AgeAtBooking    string
	BailAmount      string
	Charges         string
	CourtDate       string
	CourtLocation   string
	Gender          string
	InmateHash      string
	Height          string
	HousingLocation string
	Race            string
	Weight          string
}

// OutputRow is emitted once per successfully extracted candidate.
type OutputRow struct {
	RunID      string
	Identifier string
	ScrapedOn  time.Time
	RawKey     string
	Record     ExtractedRecord
	Incomplete bool
}

// RunSummary tallies the outcome of one crawl run.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Today         time.Time `json:"today"`
	SeedDate      time.Time `json:"seed_date"`
	Candidates    int       `json:"candidates"`
	Fetched       int       `json:"fetched"`
	FetchFailed   int       `json:"fetch_failed"`
	StoreFailed   int       `json:"store_failed"`
	ExtractFailed int       `json:"extract_failed"`
	SinkFailed    int       `json:"sink_failed"`
	Rows          int       `json:"rows"`
	Incomplete    int       `json:"incomplete"`
}
