package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/booking-crawler/internal/config"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/output/postgres"
)

type closeTrackingSink struct {
	closed bool
}

func (s *closeTrackingSink) Write(context.Context, crawler.OutputRow) error { return nil }

func (s *closeTrackingSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Storage: config.StorageConfig{Backend: config.BackendLocal, LocalDir: filepath.Join(dir, "data")},
		Seed:    config.SeedConfig{Dir: filepath.Join(dir, "daily")},
		Crawl: config.CrawlConfig{
			URLTemplate:       "https://jail.test/booking/{id}",
			MaxPerDay:         2,
			FallbackStartDate: "2023-01-01",
			Concurrency:       2,
			Timezone:          "UTC",
		},
		HTTP:   config.HTTPConfig{TimeoutSeconds: 5, UserAgent: "test"},
		Output: config.OutputConfig{CSVPath: filepath.Join(dir, "out", "rows.csv")},
	}
}

func TestNewLocalBackendPlansFromSeedDir(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Seed.Dir, 0o750))
	seedCSV := "Booking_Id,Gender\n20230105001,M\n20230105002,F\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Seed.Dir, "2023-01-05.csv"), []byte(seedCSV), 0o600))

	a, err := New(context.Background(), cfg, zap.NewNop(), Factories{})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close(context.Background())) }()

	require.NotNil(t, a.Orchestrator())
	require.NotNil(t, a.Metrics())
	plan, err := a.Orchestrator().Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), plan.Seed.Date)
	require.GreaterOrEqual(t, len(plan.Candidates), 2)
	assert.Equal(t, []string{"20230105001", "20230105002"}, plan.Candidates[:2])
	assert.Equal(t, "20230106001", plan.Candidates[2])

	_, err = os.Stat(cfg.Output.CSVPath)
	require.NoError(t, err)
}

func TestNewWiresPostgresFactoryAndClosesSinks(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Output.PostgresDSN = "postgres://crawler@localhost/bookings"
	cfg.Output.PostgresTable = "bookings"

	tracked := &closeTrackingSink{}
	var gotCfg postgres.Config
	a, err := New(context.Background(), cfg, zap.NewNop(), Factories{
		Postgres: func(_ context.Context, pcfg postgres.Config) (crawler.RowSink, error) {
			gotCfg = pcfg
			return tracked, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "bookings", gotCfg.Table)
	require.NoError(t, a.Close(context.Background()))
	assert.True(t, tracked.closed)
}

func TestNewGCSBackendReadsManifestFromBucket(t *testing.T) {
	t.Parallel()

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/cook/manifest.csv"):
			_, _ = w.Write([]byte("cook/daily/2023-02-01.csv\n"))
		case strings.HasSuffix(r.URL.Path, "/cook/daily/2023-02-01.csv"):
			_, _ = w.Write([]byte("Booking_Id\n20230201004\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := baseConfig(t)
	cfg.Storage.Backend = config.BackendGCS
	cfg.Storage.GCSBucket = "jail-pages"
	cfg.Storage.Target = "cook"
	cfg.Output.CSVPath = ""

	a, err := New(context.Background(), cfg, zap.NewNop(), Factories{
		GCS: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx, option.WithEndpoint(srv.URL), option.WithoutAuthentication())
		},
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close(context.Background())) }()

	plan, err := a.Orchestrator().Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cook/daily/2023-02-01.csv", plan.Seed.Marker)
	require.NotEmpty(t, plan.Candidates)
	assert.Equal(t, "20230201004", plan.Candidates[0])
	assert.NotEmpty(t, requested)
}

func TestNewFailsOnUnwritableLocalDir(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	cfg.Storage.LocalDir = file

	_, err := New(context.Background(), cfg, zap.NewNop(), Factories{})
	require.Error(t, err)
}
