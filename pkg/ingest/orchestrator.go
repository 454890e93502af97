// Package ingest drives one ingestion run: page-count discovery, windowed
// concurrent page fetching, and committed writes to the record store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/catalog"
	"github.com/campwatch/campground-ingest/pkg/dyrt"
	"github.com/campwatch/campground-ingest/pkg/logging"
)

// Prometheus metrics for ingestion runs.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "Total ingestion runs by outcome",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_run_duration_seconds",
		Help:    "Full ingestion run duration in seconds",
		Buckets: []float64{1, 10, 30, 60, 300, 900, 3600},
	})

	pagesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_pages_processed_total",
		Help: "Pages processed across all runs",
	})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_records_total",
		Help: "Records handed to the sink across all runs",
	})
)

// PageFetcher fetches one page of catalog search results.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (dyrt.PageResult, error)
}

// Sink receives validated records and closes commit boundaries.
// The orchestrator owns the sink for the duration of a run and releases it
// on every exit path.
type Sink interface {
	Upsert(ctx context.Context, rec catalog.Record) error
	Commit(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config holds orchestrator configuration.
type Config struct {
	// MaxConcurrency is the window size: the number of pages fetched in
	// parallel before the next window starts.
	MaxConcurrency int

	// DefaultPageCeiling is assumed when the API omits the total page
	// count. A documented approximation, not a silent guess.
	DefaultPageCeiling int

	// StartPage is the first page of the run.
	StartPage int
}

// DefaultConfig returns safe default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:     10,
		DefaultPageCeiling: 100,
		StartPage:          1,
	}
}

// Orchestrator partitions the page range into sequential windows of
// concurrent fetches and writes the results through the sink.
type Orchestrator struct {
	fetcher PageFetcher
	sink    Sink
	config  Config
	logger  zerolog.Logger
}

// New creates an orchestrator.
func New(fetcher PageFetcher, sink Sink, config Config) *Orchestrator {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.DefaultPageCeiling <= 0 {
		config.DefaultPageCeiling = 100
	}
	if config.StartPage <= 0 {
		config.StartPage = 1
	}

	return &Orchestrator{
		fetcher: fetcher,
		sink:    sink,
		config:  config,
		logger:  logging.NewLogger("ingest"),
	}
}

// pageOutcome pairs a page number with its fetch result inside a window.
type pageOutcome struct {
	page   int
	result dyrt.PageResult
	err    error
}

// Run executes one ingestion run.
//
// Page 1 is fetched alone to discover the total page count, then the
// remaining range is processed in sequential windows of at most
// MaxConcurrency concurrent fetches, with one commit per window. A page
// whose fetch fails after retries yields zero records and the run
// continues. Zero records on the first page is a clean early exit, not an
// error. Cancellation is propagated after cleanup; the sink is released on
// every exit path.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())

		// Cleanup must work even when ctx is already cancelled.
		cleanupCtx := context.WithoutCancel(ctx)
		if closeErr := o.sink.Close(cleanupCtx); closeErr != nil {
			o.logger.Warn().Err(closeErr).Msg("Sink close failed")
		}

		switch {
		case err == nil:
			runsTotal.WithLabelValues("ok").Inc()
		case errors.Is(err, context.Canceled) || errors.Is(err, dyrt.ErrContextCancelled):
			runsTotal.WithLabelValues("cancelled").Inc()
		default:
			runsTotal.WithLabelValues("error").Inc()
		}
	}()

	startPage := o.config.StartPage

	o.logger.Info().Int("page", startPage).Msg("Fetching first page to determine page count")
	first, err := o.fetcher.FetchPage(ctx, startPage)
	if err != nil {
		return fmt.Errorf("fetch first page: %w", err)
	}

	if len(first.Records) == 0 {
		o.logger.Warn().Int("page", startPage).Msg("No results from first page, exiting")
		return nil
	}

	if err := o.writePage(ctx, startPage, first.Records); err != nil {
		return err
	}
	if err := o.sink.Commit(ctx); err != nil {
		return fmt.Errorf("commit first page: %w", err)
	}
	o.logger.Info().
		Int("page", startPage).
		Int("records", len(first.Records)).
		Msg("First page processed")

	totalPages := first.TotalPages
	if !first.HasTotal {
		totalPages = o.config.DefaultPageCeiling
		o.logger.Warn().
			Int("total_pages", totalPages).
			Msg("Could not determine total page count, using default ceiling")
	} else {
		o.logger.Info().Int("total_pages", totalPages).Msg("Discovered page count")
	}

	windowStart := time.Now()
	for batchStart := startPage + 1; batchStart <= totalPages; batchStart += o.config.MaxConcurrency {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		batchEnd := batchStart + o.config.MaxConcurrency - 1
		if batchEnd > totalPages {
			batchEnd = totalPages
		}

		o.logger.Info().
			Int("window", batchStart).
			Int("window_end", batchEnd).
			Msg("Fetching window")

		outcomes := o.fetchWindow(ctx, batchStart, batchEnd)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		// Results merge back in page-number order for persistence and
		// logging; each record write is independently keyed so no
		// cross-page ordering is required.
		for _, outcome := range outcomes {
			if outcome.err != nil {
				o.logger.Warn().
					Err(outcome.err).
					Int("page", outcome.page).
					Msg("Page fetch failed, continuing with zero records")
				continue
			}
			if err := o.writePage(ctx, outcome.page, outcome.result.Records); err != nil {
				return err
			}
		}

		if err := o.sink.Commit(ctx); err != nil {
			return fmt.Errorf("commit window starting at page %d: %w", batchStart, err)
		}

		progress := Progress{
			PagesDone:  batchEnd - startPage,
			TotalPages: totalPages - startPage,
			Elapsed:    time.Since(windowStart),
		}
		o.logger.Info().
			Float64("progress_pct", progress.Percent()).
			Dur("elapsed", progress.Elapsed).
			Dur("eta", progress.ETA()).
			Msg("Window committed")
	}

	o.logger.Info().
		Int("total_pages", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Ingestion run complete")

	return nil
}

// fetchWindow fetches pages [batchStart, batchEnd] concurrently and returns
// the outcomes ordered by page number. Parallelism equals the window size,
// never more.
func (o *Orchestrator) fetchWindow(ctx context.Context, batchStart, batchEnd int) []pageOutcome {
	outcomes := make([]pageOutcome, batchEnd-batchStart+1)

	var wg sync.WaitGroup
	for page := batchStart; page <= batchEnd; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			result, err := o.fetcher.FetchPage(ctx, page)
			outcomes[page-batchStart] = pageOutcome{page: page, result: result, err: err}
		}(page)
	}
	wg.Wait()

	return outcomes
}

// writePage hands every record of a page to the sink.
func (o *Orchestrator) writePage(ctx context.Context, page int, records []catalog.Record) error {
	for _, rec := range records {
		if err := o.sink.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("upsert on page %d: %w", page, err)
		}
	}

	pagesProcessedTotal.Inc()
	recordsTotal.Add(float64(len(records)))
	o.logger.Info().
		Int("page", page).
		Int("records", len(records)).
		Msg("Page done")

	return nil
}
