package gcsmanifest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/seed"
)

type fakeObjects struct {
	objects map[string]string
	err     error
}

func (f *fakeObjects) ReadObject(_ context.Context, bucket, object string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, object, storage.ErrObjectNotExist)
	}
	return []byte(data), nil
}

func TestManifestPath(t *testing.T) {
	t.Parallel()

	src, err := New(&fakeObjects{}, nil, Config{Bucket: "b", Target: "cook"})
	require.NoError(t, err)
	assert.Equal(t, "cook/manifest.csv", src.ManifestPath())

	src, err = New(&fakeObjects{}, nil, Config{Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "manifest.csv", src.ManifestPath())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = New(&fakeObjects{}, nil, Config{})
	assert.Error(t, err)
}

func TestMarkersSkipsBlankLines(t *testing.T) {
	t.Parallel()

	objects := &fakeObjects{objects: map[string]string{
		"b/cook/manifest.csv": "gs://b/cook/daily/2023-05-31.csv\n\ngs://b/cook/daily/2023-06-01.csv\r\n\n",
	}}
	src, err := New(objects, nil, Config{Bucket: "b", Target: "cook"})
	require.NoError(t, err)

	markers, err := src.Markers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gs://b/cook/daily/2023-05-31.csv", "gs://b/cook/daily/2023-06-01.csv"}, markers)
}

func TestMarkersAbsentAndFailing(t *testing.T) {
	t.Parallel()

	src, err := New(&fakeObjects{}, nil, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = src.Markers(context.Background())
	assert.ErrorIs(t, err, crawler.ErrSeedAbsent)

	src, err = New(&fakeObjects{err: errors.New("403 forbidden")}, nil, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = src.Markers(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, crawler.ErrSeedAbsent)
}

func TestIdentifiersMarkerForms(t *testing.T) {
	t.Parallel()

	objects := &fakeObjects{objects: map[string]string{
		"b/cook/daily/2023-06-01.csv":   "Booking_Id\nA1\n",
		"other/daily/2023-06-01.csv":    "Booking_Id\nB1\n",
		"pub/cook/daily/2023-06-01.csv": "Booking_Id\nC1\n",
	}}
	src, err := New(objects, nil, Config{Bucket: "b", Target: "cook"})
	require.NoError(t, err)

	tests := map[string]string{
		"cook/daily/2023-06-01.csv":                                    "A1",
		"gs://other/daily/2023-06-01.csv":                              "B1",
		"https://storage.googleapis.com/pub/cook/daily/2023-06-01.csv": "C1",
	}
	for marker, want := range tests {
		ids, err := src.Identifiers(context.Background(), marker)
		require.NoError(t, err, marker)
		assert.Equal(t, []string{want}, ids, marker)
	}

	_, err = src.Identifiers(context.Background(), "ftp://host/2023-06-01.csv")
	assert.Error(t, err)
}

func TestIdentifiersOverHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/daily/2023-06-01.csv" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "Booking_Id,Race\nH1,W\nH2,B\n")
	}))
	defer server.Close()

	src, err := New(&fakeObjects{}, server.Client(), Config{Bucket: "b"})
	require.NoError(t, err)

	ids, err := src.Identifiers(context.Background(), server.URL+"/daily/2023-06-01.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"H1", "H2"}, ids)

	_, err = src.Identifiers(context.Background(), server.URL+"/daily/missing.csv")
	assert.Error(t, err)
}

func TestResolverOverManifest(t *testing.T) {
	t.Parallel()

	objects := &fakeObjects{objects: map[string]string{
		"b/manifest.csv":         "daily/2023-05-31.csv\ndaily/2023-06-01.csv\n",
		"b/daily/2023-06-01.csv": "Booking_Id\nA1\n",
	}}
	src, err := New(objects, nil, Config{Bucket: "b"})
	require.NoError(t, err)

	got, err := seed.NewResolver(src, time.Time{}, zap.NewNop()).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, []string{"A1"}, got.Identifiers)
}

func TestResolverFallbackWithoutManifest(t *testing.T) {
	t.Parallel()

	src, err := New(&fakeObjects{}, nil, Config{Bucket: "b", Target: "cook"})
	require.NoError(t, err)

	fallback := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := seed.NewResolver(src, fallback, zap.NewNop()).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallback, got.Date)
	assert.Empty(t, got.Identifiers)
}
