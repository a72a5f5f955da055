package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRun(true, 12)
	r.ObserveCandidate(OutcomeFetched)
	r.ObserveCandidate(OutcomeFetched)
	r.ObserveCandidate(OutcomeFetchFailed)
	r.ObserveFetch(1024, 150*time.Millisecond)
	r.ObserveRow(true)

	assert.InDelta(t, 1, testutil.ToFloat64(r.runsTotal.WithLabelValues("fallback")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(r.lastRunCandidates), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.candidatesTotal.WithLabelValues(OutcomeFetched)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.candidatesTotal.WithLabelValues(OutcomeFetchFailed)), 0)
	assert.InDelta(t, 1024, testutil.ToFloat64(r.bytesTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.rowsTotal.WithLabelValues("true")), 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ObserveRun(false, 1)
	r.ObserveCandidate(OutcomeFetched)
	r.ObserveFetch(1, time.Second)
	r.ObserveRow(false)
	r.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()

	r := New()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/notfound", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", r.Handler())

	ts := httptest.NewServer(router)
	defer ts.Close()

	for _, p := range []string{"/test", "/notfound"} {
		resp, err := http.Get(ts.URL + p)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	assert.InDelta(t, 1, testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("GET", "404")), 0)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck // test cleanup
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "http_requests_total"))
}
