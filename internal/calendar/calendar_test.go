package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayTruncatesToUTCMidnight(t *testing.T) {
	t.Parallel()

	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	got := Day(time.Date(2023, 6, 1, 23, 30, 0, 0, chicago))
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestTodayUsesLocation(t *testing.T) {
	t.Parallel()

	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	now := time.Date(2023, 6, 3, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-06-03", FormatDay(Today(now, nil)))
	assert.Equal(t, "2023-06-02", FormatDay(Today(now, chicago)))
}

func TestAddDaysCrossesMonth(t *testing.T) {
	t.Parallel()

	day := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-02-01", FormatDay(AddDays(day, 1)))
	assert.Equal(t, "2023-01-30", FormatDay(AddDays(day, -1)))
}

func TestFormatCompact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20230602", FormatCompact(time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC)))
}

func TestMarkerDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		marker string
		want   string
	}{
		{name: "file name", marker: "2023-06-01.csv", want: "2023-06-01"},
		{name: "object path", marker: "cook/daily/2023-06-01.csv", want: "2023-06-01"},
		{name: "https url", marker: "https://storage.googleapis.com/bucket/daily/2023-06-01.csv", want: "2023-06-01"},
		{name: "gs uri", marker: "gs://bucket/daily/2023-06-01.csv", want: "2023-06-01"},
		{name: "no extension", marker: "2023-06-01", want: "2023-06-01"},
		{name: "padded", marker: "  2023-06-01.csv\r", want: "2023-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MarkerDay(tt.marker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatDay(got))
		})
	}
}

func TestMarkerDayRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, marker := range []string{"", "manifest.csv", "2023-13-01.csv", "daily/"} {
		_, err := MarkerDay(marker)
		assert.Error(t, err, marker)
	}
}
