package enumerate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCandidatesResumesAfterSeededDay(t *testing.T) {
	t.Parallel()

	got := Candidates(day("2023-06-01"), []string{"A1"}, day("2023-06-03"), 50)

	require.Len(t, got, 51)
	assert.Equal(t, "A1", got[0])
	for i := 1; i <= 50; i++ {
		assert.Equal(t, fmt.Sprintf("20230602%03d", i), got[i])
	}
	for _, id := range got {
		assert.NotContains(t, id, "20230603")
		assert.NotContains(t, id, "20230601")
	}
}

func TestCandidatesFallbackStartsInclusive(t *testing.T) {
	t.Parallel()

	got := Candidates(day("2023-01-01"), nil, day("2023-01-03"), 2)
	assert.Equal(t, []string{"20230101001", "20230101002", "20230102001", "20230102002"}, got)
}

func TestCandidatesEmptyWhenCursorIsToday(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Candidates(day("2023-01-01"), nil, day("2023-01-01"), 50))
}

func TestCandidatesResumeAfterTodayReturnsKnownOnly(t *testing.T) {
	t.Parallel()

	known := []string{"20230605001", "20230605002"}
	got := Candidates(day("2023-06-05"), known, day("2023-06-03"), 50)
	assert.Equal(t, known, got)

	got = Candidates(day("2023-06-02"), known, day("2023-06-03"), 50)
	assert.Equal(t, known, got, "seeded day is yesterday, nothing left to generate")
}

func TestCandidatesNonPositiveCap(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Candidates(day("2023-01-01"), nil, day("2023-01-05"), 0))
	assert.Equal(t, []string{"K"}, Candidates(day("2023-01-01"), []string{"K"}, day("2023-01-05"), -1))
}

func TestCandidatesStrictlyIncreasingAndUnique(t *testing.T) {
	t.Parallel()

	got := Candidates(day("2023-02-26"), nil, day("2023-03-03"), 12)
	require.Len(t, got, 5*12)
	seen := make(map[string]struct{}, len(got))
	for i, id := range got {
		require.Len(t, id, 8+SequenceWidth)
		if i > 0 {
			assert.Less(t, got[i-1], id)
		}
		_, dup := seen[id]
		assert.False(t, dup, id)
		seen[id] = struct{}{}
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	t.Parallel()

	first := Candidates(day("2023-06-01"), []string{"B", "A"}, day("2023-06-10"), 7)
	second := Candidates(day("2023-06-01"), []string{"B", "A"}, day("2023-06-10"), 7)
	assert.Equal(t, first, second)
}

func TestCandidatesDoesNotAliasKnown(t *testing.T) {
	t.Parallel()

	known := []string{"A1"}
	got := Candidates(day("2023-06-01"), known, day("2023-06-03"), 1)
	got[0] = "changed"
	assert.Equal(t, "A1", known[0])
}

func TestSampleKeepsTail(t *testing.T) {
	t.Parallel()

	ids := Candidates(day("2023-06-01"), nil, day("2023-06-03"), 5)
	assert.Equal(t, []string{"20230602004", "20230602005"}, Sample(ids, 2))
	assert.Equal(t, ids, Sample(ids, 0))
	assert.Equal(t, ids, Sample(ids, 100))
}

func TestURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.org/inmate?id=20230602001",
		URL("https://example.org/inmate?id={id}", "20230602001"))
	assert.Equal(t, "https://example.org/inmate/20230602001",
		URL("https://example.org/inmate/", "20230602001"))
}
