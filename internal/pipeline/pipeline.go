package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipmatch/internal/acquire"
	"clipmatch/internal/logging"
	"clipmatch/internal/media/compose"
	"clipmatch/internal/notifications"
	"clipmatch/internal/pairing"
	"clipmatch/internal/pixabay"
	"clipmatch/internal/services"
	"clipmatch/internal/staging"
)

const component = "pipeline"

// Searcher finds candidates for a query.
type Searcher interface {
	Search(ctx context.Context, req pixabay.SearchRequest) ([]pixabay.Candidate, error)
}

// Options wires the collaborators of one pipeline.
type Options struct {
	Searcher Searcher
	Fetcher  acquire.Fetcher
	Ledger   acquire.Ledger
	Pool     pairing.Pool
	Composer compose.Composer
	Prober   pairing.Prober
	Notifier notifications.Service
	Logger   *slog.Logger

	DownloadDir         string
	OutputDir           string
	DownloadConcurrency int
	PairConcurrency     int
	BufferSeconds       float64
	// PartialMaxAge bounds which leftover ".part" files are removed before a
	// run. Zero removes all of them.
	PartialMaxAge time.Duration
}

// Request is one invocation of the pipeline.
type Request struct {
	Query       string
	PageSize    int
	Page        int
	MinDuration float64
	MaxDuration float64
	// DownloadOnly stops after the download stage.
	DownloadOnly bool
}

// Pipeline runs search, download and pairing for one query.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewNoop()
	}
	return &Pipeline{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, component),
	}
}

// Run executes one batch. The returned Summary is populated as far as the
// run got, including when an error is returned. Per-item failures are
// reported in the Summary only; the error is non-nil for search failures,
// persistence failures and cancellation.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	started := time.Now()
	runID, ok := services.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = services.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, p.logger)

	summary := Summary{RunID: runID, Query: strings.TrimSpace(req.Query)}
	finish := func(err error) (Summary, error) {
		summary.Duration = time.Since(started)
		p.notify(ctx, logger, summary, err)
		return summary, err
	}

	if summary.Query == "" {
		return finish(services.Wrap(services.ErrValidation, component, "run", "query is required", nil))
	}

	cleaned := staging.CleanPartials(ctx, p.opts.DownloadDir, p.opts.PartialMaxAge, logger)
	summary.CleanedPartials = len(cleaned.Removed)

	logger.Info("run starting",
		slog.String("query", summary.Query),
		slog.String(logging.FieldEventType, "run_start"),
	)

	candidates, err := p.opts.Searcher.Search(ctx, pixabay.SearchRequest{
		Query:       summary.Query,
		PageSize:    req.PageSize,
		Page:        req.Page,
		MinDuration: req.MinDuration,
		MaxDuration: req.MaxDuration,
	})
	if err != nil {
		return finish(err)
	}
	summary.Candidates = len(candidates)
	if len(candidates) == 0 {
		logging.WarnWithContext(logger, "search returned no candidates", "search_empty",
			slog.String(logging.FieldErrorHint, "broaden the query or relax the duration filters"),
			slog.String(logging.FieldImpact, "nothing to download"),
		)
	}

	scheduler := acquire.New(p.opts.Fetcher, p.opts.Ledger, acquire.Options{
		DownloadDir: p.opts.DownloadDir,
		Query:       summary.Query,
		Logger:      p.opts.Logger,
	})
	downloads, err := scheduler.Run(ctx, candidates, p.opts.DownloadConcurrency)
	summary.applyDownloads(downloads)
	if err != nil {
		return finish(err)
	}

	if req.DownloadOnly {
		summary.PairingSkipped = true
		return finish(nil)
	}

	pairer := pairing.New(p.opts.Pool, p.opts.Composer, p.opts.Prober, pairing.Options{
		OutputDir: p.opts.OutputDir,
		Logger:    p.opts.Logger,
	})
	outcomes, err := pairer.PairAll(ctx, acquire.Succeeded(downloads), p.opts.BufferSeconds, p.opts.PairConcurrency)
	summary.applyPairings(outcomes)
	if err != nil {
		return finish(err)
	}

	logger.Info("run complete",
		slog.Int("downloaded", summary.Downloaded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int("paired", summary.Paired),
		slog.Int("pair_failed", summary.PairFailed),
		slog.Bool("pool_exhausted", summary.PoolExhausted),
		slog.String(logging.FieldEventType, "run_complete"),
	)
	return finish(nil)
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, summary Summary, runErr error) {
	// Notifications go out after cancellation too.
	ctx = context.WithoutCancel(ctx)
	var err error
	switch {
	case runErr == nil:
		err = p.opts.Notifier.NotifyRunCompleted(ctx, summary.Counts())
	case errors.Is(runErr, context.Canceled):
		return
	default:
		err = p.opts.Notifier.NotifyError(ctx, runErr, fmt.Sprintf("run %q", summary.Query))
	}
	if err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			slog.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			slog.String(logging.FieldImpact, "run outcome not pushed"),
		)
	}
}
