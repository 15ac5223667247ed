package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"clipmatch/internal/ledger"
	"clipmatch/internal/logging"
	"clipmatch/internal/pixabay"
	"clipmatch/internal/services"
	"clipmatch/internal/textutil"
)

const component = "acquire"

// Fetcher downloads one remote asset to dest.
type Fetcher interface {
	Download(ctx context.Context, sourceURL, dest string) (string, error)
}

// Ledger is the dedup set consulted and updated by the scheduler.
type Ledger interface {
	Contains(id string) bool
	Record(ctx context.Context, id string) error
}

// Options configures a Scheduler.
type Options struct {
	DownloadDir string
	// Query names downloaded files: <slug(query)>_<remote_id>.mp4.
	Query  string
	Logger *slog.Logger
}

// Scheduler downloads a batch of candidates with bounded parallelism,
// skipping anything the ledger already holds.
type Scheduler struct {
	fetcher     Fetcher
	ledger      Ledger
	downloadDir string
	prefix      string
	logger      *slog.Logger
}

// New constructs a Scheduler.
func New(fetcher Fetcher, ledger Ledger, opts Options) *Scheduler {
	return &Scheduler{
		fetcher:     fetcher,
		ledger:      ledger,
		downloadDir: opts.DownloadDir,
		prefix:      textutil.Slug(opts.Query),
		logger:      logging.NewComponentLogger(opts.Logger, component),
	}
}

// validateCandidate rejects candidates before dispatch, including ids the
// ledger could never record.
func validateCandidate(cand pixabay.Candidate) error {
	if strings.TrimSpace(cand.RemoteID) == "" || strings.TrimSpace(cand.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, component, "run", "candidate missing id or source url", nil)
	}
	if err := ledger.ValidateID(cand.RemoteID); err != nil {
		return services.Wrap(services.ErrValidation, component, "run", "unrecordable remote id", err)
	}
	return nil
}

// Destination returns the local path used for a remote id.
func (s *Scheduler) Destination(remoteID string) string {
	return filepath.Join(s.downloadDir, s.prefix+"_"+textutil.SanitizeFileName(remoteID)+".mp4")
}

// Run processes candidates with at most limit concurrent downloads and
// returns one Result per candidate in input order.
//
// Download failures affect only their own candidate. A ledger write failure
// is fatal: the batch is cancelled and Run returns the results gathered so
// far with the persistence error. When ctx is cancelled, candidates not yet
// dispatched are reported failed with the context error.
func (s *Scheduler) Run(ctx context.Context, candidates []pixabay.Candidate, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "run", fmt.Sprintf("concurrency limit must be positive, got %d", limit), nil)
	}

	results := make([]Result, len(candidates))
	pending := make([]int, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for i, cand := range candidates {
		results[i] = Result{
			Index:           i,
			RemoteID:        cand.RemoteID,
			SourceURL:       cand.SourceURL,
			DurationSeconds: cand.DurationSeconds,
		}
		if err := validateCandidate(cand); err != nil {
			results[i].Status = StatusFailed
			results[i].Err = err
			continue
		}
		switch {
		case s.ledger.Contains(cand.RemoteID):
			results[i].Status = StatusSkipped
			results[i].SkipReason = SkipLedger
		default:
			if _, dup := seen[cand.RemoteID]; dup {
				results[i].Status = StatusSkipped
				results[i].SkipReason = SkipDuplicate
				continue
			}
			seen[cand.RemoteID] = struct{}{}
			pending = append(pending, i)
		}
	}

	started := time.Now()
	s.logger.Info("download batch starting",
		slog.Int("candidates", len(candidates)),
		slog.Int("to_download", len(pending)),
		slog.Int("skipped", len(candidates)-len(pending)),
		slog.Int("limit", limit),
		slog.String(logging.FieldEventType, "acquire_start"),
	)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		fatalOnce sync.Once
		fatalErr  error
		inFlight  atomic.Int32
		wg        sync.WaitGroup
	)
	setFatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel(err)
		})
	}

	jobs := make(chan int)
	workers := min(limit, len(pending))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				inFlight.Add(1)
				s.process(runCtx, &results[i], setFatal)
				inFlight.Add(-1)
			}
		}()
	}

dispatch:
	for n, i := range pending {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			for _, rest := range pending[n:] {
				results[rest].Status = StatusFailed
				results[rest].Err = fmt.Errorf("not attempted: %w", cancellationErr(runCtx))
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	counts := Tally(results)
	s.logger.Info("download batch finished",
		slog.Int("succeeded", counts.Succeeded),
		slog.Int("skipped", counts.Skipped),
		slog.Int("failed", counts.Failed),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		slog.String(logging.FieldEventType, "acquire_complete"),
	)

	if fatalErr != nil {
		return results, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (s *Scheduler) process(ctx context.Context, res *Result, setFatal func(error)) {
	ctx = services.WithRemoteID(ctx, res.RemoteID)
	logger := logging.WithContext(ctx, s.logger)

	if ctx.Err() != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("not attempted: %w", cancellationErr(ctx))
		return
	}

	path, err := s.fetcher.Download(ctx, res.SourceURL, s.Destination(res.RemoteID))
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logging.WarnWithContext(logger, "download failed; candidate skipped", "download_failed",
			logging.Error(err),
			slog.String(logging.FieldErrorHint, "the clip will be retried on the next run"),
			slog.String(logging.FieldImpact, "candidate not paired this run"),
		)
		return
	}

	// A download that finished is recorded even if the batch is being
	// cancelled, so the next run does not fetch it again.
	if err := s.ledger.Record(context.WithoutCancel(ctx), res.RemoteID); err != nil {
		res.Status = StatusFailed
		res.LocalPath = path
		res.Err = err
		if !errors.Is(err, services.ErrPersistence) {
			logging.WarnWithContext(logger, "ledger rejected id; candidate skipped", "ledger_record_rejected",
				logging.Error(err),
				slog.String(logging.FieldImpact, "candidate not paired this run"),
			)
			return
		}
		logging.ErrorWithContext(logger, "ledger record failed; aborting batch", "ledger_record_failed",
			logging.Error(err),
			slog.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
		)
		setFatal(err)
		return
	}

	res.Status = StatusSucceeded
	res.LocalPath = path
	logger.Info("download complete",
		slog.String("path", path),
		slog.String(logging.FieldEventType, "download_complete"),
	)
}

func cancellationErr(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, ctx.Err()) {
		return errors.Join(ctx.Err(), cause)
	}
	return ctx.Err()
}
