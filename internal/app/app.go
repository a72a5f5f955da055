// Package app builds the long-lived services of the crawler from configuration
// and owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/clock/system"
	"github.com/JakeFAU/booking-crawler/internal/config"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/booking-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/booking-crawler/internal/hash/sha256"
	"github.com/JakeFAU/booking-crawler/internal/id/uuid"
	"github.com/JakeFAU/booking-crawler/internal/metrics"
	"github.com/JakeFAU/booking-crawler/internal/orchestrator"
	"github.com/JakeFAU/booking-crawler/internal/output"
	"github.com/JakeFAU/booking-crawler/internal/output/postgres"
	pubsubsink "github.com/JakeFAU/booking-crawler/internal/output/pubsub"
	"github.com/JakeFAU/booking-crawler/internal/pagestore"
	"github.com/JakeFAU/booking-crawler/internal/seed"
	"github.com/JakeFAU/booking-crawler/internal/seed/gcsmanifest"
	"github.com/JakeFAU/booking-crawler/internal/seed/localdir"
	gcsstore "github.com/JakeFAU/booking-crawler/internal/storage/gcs"
	"github.com/JakeFAU/booking-crawler/internal/storage/local"
)

// Factories create external clients. Zero fields use the real constructors.
type Factories struct {
	GCS      func(ctx context.Context) (*storage.Client, error)
	PubSub   func(ctx context.Context, projectID string) (*pubsub.Client, error)
	Postgres func(ctx context.Context, cfg postgres.Config) (crawler.RowSink, error)
	HTTP     *http.Client
}

func (f Factories) withDefaults() Factories {
	if f.GCS == nil {
		f.GCS = func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		}
	}
	if f.PubSub == nil {
		f.PubSub = func(ctx context.Context, projectID string) (*pubsub.Client, error) {
			return pubsub.NewClient(ctx, projectID)
		}
	}
	if f.Postgres == nil {
		f.Postgres = func(ctx context.Context, cfg postgres.Config) (crawler.RowSink, error) {
			return postgres.New(ctx, cfg)
		}
	}
	return f
}

// App holds the shared services of one process.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	metrics      *metrics.Recorder
	orchestrator *orchestrator.Orchestrator
	sink         output.Multi
	closers      []func() error
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Metrics returns the Prometheus recorder.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Orchestrator returns the crawl orchestrator.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// New builds every service named by cfg. It fails fast: on error, services
// already created are closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, factories Factories) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	factories = factories.withDefaults()
	a := &App{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	fallback, err := cfg.FallbackStart()
	if err != nil {
		return nil, err
	}

	pages, source, err := a.buildStorage(ctx, cfg, factories)
	if err != nil {
		return nil, err
	}
	if err := a.buildSinks(ctx, cfg, factories); err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		URLTemplate: cfg.Crawl.URLTemplate,
		MaxPerDay:   cfg.Crawl.MaxPerDay,
		SampleSize:  cfg.Crawl.SampleSize,
		Concurrency: cfg.Crawl.Concurrency,
		Location:    loc,
		Headers:     cfg.RequestHeaders(),
	}, orchestrator.Dependencies{
		Resolver: seed.NewResolver(source, fallback, logger.Named("seed")),
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}),
		Pages:     pages,
		Extractor: extract.New(sha256.New()),
		Sink:      a.sink,
		Clock:     system.New(loc),
		IDs:       uuid.NewUUIDGenerator(),
		Metrics:   a.metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	a.orchestrator = orch

	logger.Info("application services initialized",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("sinks", len(a.sink)),
	)
	return a, nil
}

func (a *App) buildStorage(
	ctx context.Context,
	cfg config.Config,
	factories Factories,
) (crawler.PageStore, crawler.ManifestSource, error) {
	var stores pagestore.Multi
	var source crawler.ManifestSource = localdir.New(cfg.Seed.Dir)

	if cfg.UsesLocal() {
		blobs, err := local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local storage: %w", err)
		}
		store, err := pagestore.New(blobs, pagestore.Namespace(""))
		if err != nil {
			return nil, nil, err
		}
		stores = append(stores, store)
	}

	if cfg.UsesGCS() {
		client, err := factories.GCS(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		blobs, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs storage: %w", err)
		}
		store, err := pagestore.New(blobs, pagestore.Namespace(cfg.Storage.Target))
		if err != nil {
			return nil, nil, err
		}
		stores = append(stores, store)

		// The bucket owns the manifest whenever it is in use.
		manifest, err := gcsmanifest.New(blobs, factories.HTTP, gcsmanifest.Config{
			Bucket: cfg.Storage.GCSBucket,
			Target: cfg.Storage.Target,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init manifest source: %w", err)
		}
		source = manifest
	}

	if len(stores) == 1 {
		return stores[0], source, nil
	}
	return stores, source, nil
}

func (a *App) buildSinks(ctx context.Context, cfg config.Config, factories Factories) error {
	if cfg.Output.CSVPath != "" {
		sink, err := output.OpenCSVFile(cfg.Output.CSVPath)
		if err != nil {
			return fmt.Errorf("init csv sink: %w", err)
		}
		a.sink = append(a.sink, sink)
	}
	if cfg.Output.PostgresDSN != "" {
		sink, err := factories.Postgres(ctx, postgres.Config{
			DSN:   cfg.Output.PostgresDSN,
			Table: cfg.Output.PostgresTable,
		})
		if err != nil {
			return fmt.Errorf("init postgres sink: %w", err)
		}
		a.sink = append(a.sink, sink)
	}
	if cfg.Output.PubSubProject != "" {
		client, err := factories.PubSub(ctx, cfg.Output.PubSubProject)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.sink = append(a.sink, pubsubsink.NewFromPublisher(client.Publisher(cfg.Output.PubSubTopic)))
	}
	if len(a.sink) == 0 {
		a.logger.Warn("no output sink configured; extracted rows are discarded")
	}
	return nil
}

// Close flushes sinks and releases clients. Sinks close before the clients
// they publish through.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("shutting down application services")
	errs := []error{a.sink.Close(ctx)}
	a.sink = nil
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
