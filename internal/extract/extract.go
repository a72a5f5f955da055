// Package extract reads booking fields from a raw detail page.
//
// Pages are read as label/value pairs: table rows whose first cell is a label
// and second cell a value, and definition lists (dt/dd). Labels are matched
// case-insensitively after stripping punctuation.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// FieldHasher hashes normalized identity fields. sha256.Hasher satisfies it.
type FieldHasher interface {
	HashFields(fields ...string) (string, error)
}

type field int

const (
	fieldUnknown field = iota
	fieldBookingID
	fieldBookingDate
	fieldAge
	fieldBail
	fieldCharges
	fieldCourtDate
	fieldCourtLocation
	fieldGender
	fieldHeight
	fieldHousing
	fieldRace
	fieldWeight
	fieldName
	fieldBirthDate
)

var labels = map[string]field{
	"booking id":           fieldBookingID,
	"booking number":       fieldBookingID,
	"jail number":          fieldBookingID,
	"booking date":         fieldBookingDate,
	"age at booking":       fieldAge,
	"bail amount":          fieldBail,
	"bond amount":          fieldBail,
	"charges":              fieldCharges,
	"charge":               fieldCharges,
	"charge description":   fieldCharges,
	"next court date":      fieldCourtDate,
	"court date":           fieldCourtDate,
	"court location":       fieldCourtLocation,
	"court house location": fieldCourtLocation,
	"next court location":  fieldCourtLocation,
	"gender":               fieldGender,
	"sex":                  fieldGender,
	"height":               fieldHeight,
	"housing location":     fieldHousing,
	"race":                 fieldRace,
	"weight":               fieldWeight,
	"name":                 fieldName,
	"inmate name":          fieldName,
	"date of birth":        fieldBirthDate,
	"birth date":           fieldBirthDate,
}

var (
	labelPunct   = regexp.MustCompile(`[^a-z0-9 ]+`)
	dateLayouts  = []string{"2006-01-02", "01/02/2006", "1/2/2006", "01-02-2006", "Jan 2, 2006", "January 2, 2006"}
	chargesSplit = "; "
)

// Extractor implements crawler.Extractor with goquery.
type Extractor struct {
	hasher FieldHasher
}

// New builds an Extractor. The hasher derives Inmate_Hash from name and birth
// date; pages without either fall back to hashing the whole body.
func New(hasher FieldHasher) *Extractor {
	return &Extractor{hasher: hasher}
}

// Extract parses the page. Missing booking id or booking date are
// crawler.ErrExtractionFailed; every other field is optional.
func (e *Extractor) Extract(page crawler.RawPage) (crawler.ExtractedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return crawler.ExtractedRecord{}, fmt.Errorf("%w: parse html: %w", crawler.ErrExtractionFailed, err)
	}

	values := make(map[field][]string)
	collect := func(label, value string) {
		f := labels[normalizeLabel(label)]
		value = cleanText(value)
		if f == fieldUnknown || value == "" {
			return
		}
		values[f] = append(values[f], value)
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th,td")
		if cells.Length() < 2 {
			return
		}
		collect(cells.Eq(0).Text(), cells.Eq(1).Text())
	})
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		collect(dt.Text(), dt.NextFiltered("dd").Text())
	})

	first := func(f field) string {
		if v := values[f]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	rec := crawler.ExtractedRecord{
		BookingID:       first(fieldBookingID),
		AgeAtBooking:    first(fieldAge),
		BailAmount:      first(fieldBail),
		Charges:         strings.Join(values[fieldCharges], chargesSplit),
		CourtDate:       first(fieldCourtDate),
		CourtLocation:   first(fieldCourtLocation),
		Gender:          first(fieldGender),
		Height:          first(fieldHeight),
		HousingLocation: first(fieldHousing),
		Race:            first(fieldRace),
		Weight:          first(fieldWeight),
	}
	if rec.BookingID == "" {
		return crawler.ExtractedRecord{}, fmt.Errorf("%w: %s: booking id not found", crawler.ErrExtractionFailed, page.Identifier)
	}

	rawDate := first(fieldBookingDate)
	if rawDate == "" {
		return crawler.ExtractedRecord{}, fmt.Errorf("%w: %s: booking date not found", crawler.ErrExtractionFailed, page.Identifier)
	}
	rec.BookingDate, err = parseDate(rawDate)
	if err != nil {
		return crawler.ExtractedRecord{}, fmt.Errorf("%w: %s: %w", crawler.ErrExtractionFailed, page.Identifier, err)
	}

	rec.InmateHash, err = e.inmateHash(first(fieldName), first(fieldBirthDate), page.Body)
	if err != nil {
		return crawler.ExtractedRecord{}, fmt.Errorf("%w: hash: %w", crawler.ErrExtractionFailed, err)
	}
	return rec, nil
}

func (e *Extractor) inmateHash(name, birth string, body []byte) (string, error) {
	if e.hasher == nil {
		return "", nil
	}
	if name == "" && birth == "" {
		return e.hasher.HashFields(string(body))
	}
	return e.hasher.HashFields(name, birth)
}

func normalizeLabel(s string) string {
	s = strings.ToLower(s)
	s = labelPunct.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Some pages append a time ("06/01/2023 14:32"); keep the date part.
	if i := strings.IndexByte(s, ' '); i > 0 {
		for _, layout := range dateLayouts[:4] {
			if t, err := time.Parse(layout, s[:i]); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized booking date %q", s)
}
