// Package orchestrator drives one crawl run: resolve the seed day, enumerate
// candidates, then fetch, persist, extract, classify and emit each one on a
// bounded pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/classify"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/enumerate"
	"github.com/JakeFAU/booking-crawler/internal/metrics"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("crawl run already in progress")

// Config controls candidate selection and fan-out.
type Config struct {
	URLTemplate string
	MaxPerDay   int
	// SampleSize keeps only the last N candidates when positive.
	SampleSize  int
	Concurrency int
	// Location decides which calendar day is today.
	Location *time.Location
	// Headers are attached to every fetch request.
	Headers http.Header
}

// Dependencies are the collaborators of a run. Resolver and Clock are
// required for planning; the rest are required by Run.
type Dependencies struct {
	Resolver  crawler.SeedResolver
	Fetcher   crawler.Fetcher
	Pages     crawler.PageStore
	Extractor crawler.Extractor
	Sink      crawler.RowSink
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
	// Tracer defaults to the global provider.
	Tracer trace.Tracer
}

// Plan is the candidate set a run would process.
type Plan struct {
	Today      time.Time
	Seed       crawler.SeedDay
	Candidates []string
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Running bool                `json:"running"`
	Current *crawler.RunSummary `json:"current,omitempty"`
	Last    *crawler.RunSummary `json:"last,omitempty"`
}

// Orchestrator executes crawl runs.
type Orchestrator struct {
	cfg    Config
	deps   Dependencies
	logger *zap.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	current *tally
	last    *crawler.RunSummary
}

// New validates the configuration and returns an Orchestrator.
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("seed resolver is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.MaxPerDay > enumerate.MaxPerDayLimit {
		return nil, fmt.Errorf("max per day %d exceeds %d", cfg.MaxPerDay, enumerate.MaxPerDayLimit)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/JakeFAU/booking-crawler/internal/orchestrator")
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: logger.Named("orchestrator"), tracer: tracer}, nil
}

// Plan resolves the seed and enumerates the candidates for today.
func (o *Orchestrator) Plan(ctx context.Context) (Plan, error) {
	return o.plan(ctx, calendar.Today(o.deps.Clock.Now(), o.cfg.Location))
}

func (o *Orchestrator) plan(ctx context.Context, today time.Time) (Plan, error) {
	seed, err := o.deps.Resolver.Resolve(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("resolve seed: %w", err)
	}
	ids := enumerate.Candidates(seed.Date, seed.Identifiers, today, o.cfg.MaxPerDay)
	return Plan{
		Today:      today,
		Seed:       seed,
		Candidates: enumerate.Sample(ids, o.cfg.SampleSize),
	}, nil
}

// Run performs one crawl. Per-candidate failures are counted in the summary;
// only an unreadable manifest, a missing collaborator or cancellation
// produce an error.
func (o *Orchestrator) Run(ctx context.Context) (crawler.RunSummary, error) {
	if err := o.checkRunDeps(); err != nil {
		return crawler.RunSummary{}, err
	}
	runID, err := o.deps.IDs.NewID()
	if err != nil {
		return crawler.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	started := o.deps.Clock.Now()
	today := calendar.Today(started, o.cfg.Location)

	t := &tally{runID: runID, today: today, started: started}
	if !o.begin(t) {
		return crawler.RunSummary{}, ErrRunInProgress
	}
	defer o.finish(t)

	ctx, span := o.tracer.Start(ctx, "crawl.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("today", calendar.FormatDay(today)),
	))
	defer span.End()

	logger := o.logger.With(zap.String("run_id", runID), zap.String("today", calendar.FormatDay(today)))
	plan, err := o.plan(ctx, today)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "seed resolution failed")
		logger.Error("run aborted", zap.Error(err))
		return t.summary(), err
	}
	span.SetAttributes(
		attribute.String("seed_date", calendar.FormatDay(plan.Seed.Date)),
		attribute.Int("candidates", len(plan.Candidates)),
	)
	o.setPlan(t, plan)
	o.deps.Metrics.ObserveRun(plan.Seed.Fallback(), len(plan.Candidates))
	logger.Info("run planned",
		zap.String("seed_date", calendar.FormatDay(plan.Seed.Date)),
		zap.Bool("fallback", plan.Seed.Fallback()),
		zap.Int("known", len(plan.Seed.Identifiers)),
		zap.Int("candidates", len(plan.Candidates)),
	)

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for _, id := range plan.Candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may have blocked on the limit while the run was canceled.
			if ctx.Err() != nil {
				return nil
			}
			o.process(ctx, logger, t, id)
			return nil
		})
	}
	_ = g.Wait()

	summary := t.summary()
	logger.Info("run finished",
		zap.Int("fetched", summary.Fetched),
		zap.Int("fetch_failed", summary.FetchFailed),
		zap.Int("store_failed", summary.StoreFailed),
		zap.Int("extract_failed", summary.ExtractFailed),
		zap.Int("sink_failed", summary.SinkFailed),
		zap.Int("rows", summary.Rows),
		zap.Int("incomplete", summary.Incomplete),
	)
	span.SetAttributes(attribute.Int("rows", summary.Rows))
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "canceled")
		return summary, fmt.Errorf("run canceled: %w", err)
	}
	return summary, nil
}

// Snapshot reports the active run, if any, and the last finished one.
func (o *Orchestrator) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	var st Status
	if o.current != nil {
		cur := o.current.summary()
		st.Running = true
		st.Current = &cur
	}
	if o.last != nil {
		last := *o.last
		st.Last = &last
	}
	return st
}

func (o *Orchestrator) checkRunDeps() error {
	var errs []error
	if o.deps.Fetcher == nil {
		errs = append(errs, errors.New("fetcher is required"))
	}
	if o.deps.Pages == nil {
		errs = append(errs, errors.New("page store is required"))
	}
	if o.deps.Extractor == nil {
		errs = append(errs, errors.New("extractor is required"))
	}
	if o.deps.Sink == nil {
		errs = append(errs, errors.New("row sink is required"))
	}
	if o.deps.IDs == nil {
		errs = append(errs, errors.New("id generator is required"))
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) begin(t *tally) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		return false
	}
	o.current = t
	return true
}

func (o *Orchestrator) setPlan(t *tally, plan Plan) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t.seedDate = plan.Seed.Date
	t.candidates = len(plan.Candidates)
}

func (o *Orchestrator) finish(t *tally) {
	o.mu.Lock()
	defer o.mu.Unlock()
	summary := t.summary()
	o.last = &summary
	o.current = nil
}

func (o *Orchestrator) process(ctx context.Context, runLogger *zap.Logger, t *tally, id string) {
	url := enumerate.URL(o.cfg.URLTemplate, id)
	logger := runLogger.With(zap.String("booking_id", id), zap.String("url", url))
	ctx, span := o.tracer.Start(ctx, "crawl.candidate", trace.WithAttributes(attribute.String("booking_id", id)))
	defer span.End()

	resp, err := o.deps.Fetcher.Fetch(ctx, crawler.FetchRequest{
		Identifier: id,
		URL:        url,
		Headers:    o.cfg.Headers,
	})
	if err != nil {
		if !errors.Is(err, crawler.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", crawler.ErrFetchFailed, err)
		}
		t.fetchFailed.Add(1)
		o.deps.Metrics.ObserveCandidate(metrics.OutcomeFetchFailed)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeFetchFailed))
		logger.Debug("fetch failed", zap.Error(err))
		return
	}
	t.fetched.Add(1)
	o.deps.Metrics.ObserveCandidate(metrics.OutcomeFetched)
	o.deps.Metrics.ObserveFetch(len(resp.Body), resp.Duration)

	key, err := o.deps.Pages.Put(ctx, t.today, id, resp.Body)
	if err != nil {
		t.storeFailed.Add(1)
		o.deps.Metrics.ObserveCandidate(metrics.OutcomeStoreFailed)
		span.RecordError(err)
		logger.Error("store raw page failed", zap.Error(err))
	}

	record, err := o.deps.Extractor.Extract(crawler.RawPage{
		Identifier: id,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	})
	if err != nil {
		if !errors.Is(err, crawler.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", crawler.ErrExtractionFailed, err)
		}
		t.extractFailed.Add(1)
		o.deps.Metrics.ObserveCandidate(metrics.OutcomeExtractFailed)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeExtractFailed))
		logger.Warn("extraction failed", zap.String("key", key), zap.Error(err))
		return
	}

	row := crawler.OutputRow{
		RunID:      t.runID,
		Identifier: id,
		ScrapedOn:  t.started,
		RawKey:     key,
		Record:     record,
		Incomplete: classify.IsIncomplete(record.BookingDate, t.today),
	}
	if err := o.deps.Sink.Write(ctx, row); err != nil {
		t.sinkFailed.Add(1)
		o.deps.Metrics.ObserveCandidate(metrics.OutcomeSinkFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "write row failed")
		logger.Error("write row failed", zap.Error(err))
		return
	}
	t.rows.Add(1)
	if row.Incomplete {
		t.incomplete.Add(1)
	}
	o.deps.Metrics.ObserveRow(row.Incomplete)
	span.SetAttributes(attribute.Bool("incomplete", row.Incomplete))
	logger.Debug("row written", zap.String("key", key), zap.Bool("incomplete", row.Incomplete))
}

// tally holds the counters of one run. Plan fields are guarded by the
// orchestrator mutex.
type tally struct {
	runID      string
	today      time.Time
	started    time.Time
	seedDate   time.Time
	candidates int

	fetched       atomic.Int64
	fetchFailed   atomic.Int64
	storeFailed   atomic.Int64
	extractFailed atomic.Int64
	sinkFailed    atomic.Int64
	rows          atomic.Int64
	incomplete    atomic.Int64
}

func (t *tally) summary() crawler.RunSummary {
	return crawler.RunSummary{
		RunID:         t.runID,
		Today:         t.today,
		SeedDate:      t.seedDate,
		Candidates:    t.candidates,
		Fetched:       int(t.fetched.Load()),
		FetchFailed:   int(t.fetchFailed.Load()),
		StoreFailed:   int(t.storeFailed.Load()),
		ExtractFailed: int(t.extractFailed.Load()),
		SinkFailed:    int(t.sinkFailed.Load()),
		Rows:          int(t.rows.Load()),
		Incomplete:    int(t.incomplete.Load()),
	}
}
