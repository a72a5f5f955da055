package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/hash/sha256"
)

const tablePage = `<html><body>
<table class="inmate">
  <tr><th>Name:</th><td>DOE, JOHN</td></tr>
  <tr><th>Date of Birth:</th><td>01/02/1980</td></tr>
  <tr><th>Booking ID:</th><td>20230601001</td></tr>
  <tr><th>Booking Date:</th><td>06/01/2023</td></tr>
  <tr><th>Age at Booking:</th><td>43</td></tr>
  <tr><th>Gender:</th><td>Male</td></tr>
  <tr><th>Race:</th><td>W</td></tr>
  <tr><th>Height:</th><td>5'11"</td></tr>
  <tr><th>Weight:</th><td>180</td></tr>
  <tr><th>Housing Location:</th><td>DIV5-2B</td></tr>
  <tr><th>Bail Amount:</th><td>$5,000.00</td></tr>
  <tr><th>Next Court Date:</th><td>06/15/2023</td></tr>
  <tr><th>Court House Location:</th><td>  Leighton
      Courthouse </td></tr>
</table>
<table class="charges">
  <tr><th>Count</th><th>Statute</th></tr>
  <tr><td>Charge</td><td>720 ILCS 5/12-3</td></tr>
  <tr><td>Charge</td><td>625 ILCS 5/11-501</td></tr>
</table>
</body></html>`

func TestExtractTablePage(t *testing.T) {
	t.Parallel()

	rec, err := New(sha256.New()).Extract(crawler.RawPage{Identifier: "20230601001", Body: []byte(tablePage)})
	require.NoError(t, err)

	assert.Equal(t, "20230601001", rec.BookingID)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), rec.BookingDate)
	assert.Equal(t, "43", rec.AgeAtBooking)
	assert.Equal(t, "Male", rec.Gender)
	assert.Equal(t, "W", rec.Race)
	assert.Equal(t, `5'11"`, rec.Height)
	assert.Equal(t, "180", rec.Weight)
	assert.Equal(t, "DIV5-2B", rec.HousingLocation)
	assert.Equal(t, "$5,000.00", rec.BailAmount)
	assert.Equal(t, "06/15/2023", rec.CourtDate)
	assert.Equal(t, "Leighton Courthouse", rec.CourtLocation)
	assert.Equal(t, "720 ILCS 5/12-3; 625 ILCS 5/11-501", rec.Charges)

	want, err := sha256.New().HashFields("doe, john", "01/02/1980")
	require.NoError(t, err)
	assert.Equal(t, want, rec.InmateHash)
}

func TestExtractDefinitionList(t *testing.T) {
	t.Parallel()

	page := `<dl>
<dt>Booking Number</dt><dd>20230602017</dd>
<dt>Booking Date</dt><dd>2023-06-02 08:15</dd>
<dt>Sex</dt><dd>F</dd>
</dl>`
	rec, err := New(sha256.New()).Extract(crawler.RawPage{Identifier: "20230602017", Body: []byte(page)})
	require.NoError(t, err)
	assert.Equal(t, "20230602017", rec.BookingID)
	assert.Equal(t, "2023-06-02", rec.BookingDate.Format("2006-01-02"))
	assert.Equal(t, "F", rec.Gender)
	assert.NotEmpty(t, rec.InmateHash, "falls back to hashing the page body")
}

func TestExtractFailures(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty page":      ``,
		"no booking id":   `<table><tr><td>Booking Date</td><td>06/01/2023</td></tr></table>`,
		"no booking date": `<table><tr><td>Booking ID</td><td>X</td></tr></table>`,
		"bad date":        `<table><tr><td>Booking ID</td><td>X</td></tr><tr><td>Booking Date</td><td>soon</td></tr></table>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := New(nil).Extract(crawler.RawPage{Identifier: "X", Body: []byte(body)})
			require.Error(t, err)
			assert.ErrorIs(t, err, crawler.ErrExtractionFailed)
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "booking id", normalizeLabel("  Booking\tID: "))
	assert.Equal(t, "court house location", normalizeLabel("Court-House Location"))
}
