package pairing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"clipmatch/internal/acquire"
	"clipmatch/internal/logging"
	"clipmatch/internal/services"
)

// Outcome is the pairing result for one downloaded video.
type Outcome struct {
	Index    int
	RemoteID string
	Pairing  Pairing
	Err      error
}

// Paired reports whether the video was composed.
func (o Outcome) Paired() bool {
	return o.Err == nil
}

// Tally summarizes a PairAll run.
type Tally struct {
	Paired    int
	Failed    int
	Exhausted bool
}

// Summarize counts outcomes. Exhausted is set when any video went unpaired
// because the pool ran dry.
func Summarize(outcomes []Outcome) Tally {
	var t Tally
	for _, o := range outcomes {
		if o.Err == nil {
			t.Paired++
			continue
		}
		t.Failed++
		if services.Classify(o.Err) == "exhausted" {
			t.Exhausted = true
		}
	}
	return t
}

// PairAll pairs every successful download with at most concurrency
// compositions in flight. Outcomes are ordered like successes.
//
// Once a claim finds the pool empty while no sibling holds a claim and
// nothing was released meanwhile, the remaining videos are not attempted
// and report the same error. A retire failure cancels the rest and
// is returned.
func (p *Pairer) PairAll(ctx context.Context, successes []acquire.Result, bufferSeconds float64, concurrency int) ([]Outcome, error) {
	if concurrency <= 0 {
		return nil, services.Wrap(services.ErrValidation, component, "pair all", fmt.Sprintf("concurrency must be positive, got %d", concurrency), nil)
	}

	outcomes := make([]Outcome, len(successes))
	for i, res := range successes {
		outcomes[i] = Outcome{Index: i, RemoteID: res.RemoteID}
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		exhausted atomic.Bool
		holding   atomic.Int32
		fatalOnce sync.Once
		fatalErr  error
		wg        sync.WaitGroup
	)
	setFatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel(err)
		})
	}
	notAttempted := func(i int) {
		if exhausted.Load() {
			outcomes[i].Err = services.Wrap(services.ErrNoResourceAvailable, component, "pair", "not attempted: audio pool exhausted", nil)
			return
		}
		outcomes[i].Err = fmt.Errorf("not attempted: %w", runCtx.Err())
	}

	jobs := make(chan int)
	for w := 0; w < min(concurrency, len(successes)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if exhausted.Load() || runCtx.Err() != nil {
					notAttempted(i)
					continue
				}
				holding.Add(1)
				pairing, err := p.Pair(runCtx, successes[i], bufferSeconds)
				siblings := holding.Add(-1)
				outcomes[i].Pairing = pairing
				outcomes[i].Err = err
				switch services.Classify(err) {
				case "exhausted":
					// A sibling may still release its claim on compose failure.
					if siblings == 0 && p.pool.Available() == 0 {
						exhausted.Store(true)
					}
				case "persistence":
					setFatal(err)
				}
			}
		}()
	}

dispatch:
	for n := range successes {
		if exhausted.Load() {
			for rest := n; rest < len(successes); rest++ {
				notAttempted(rest)
			}
			break
		}
		select {
		case jobs <- n:
		case <-runCtx.Done():
			for rest := n; rest < len(successes); rest++ {
				notAttempted(rest)
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	tally := Summarize(outcomes)
	p.logger.Info("pairing finished",
		slog.Int("videos", len(successes)),
		slog.Int("paired", tally.Paired),
		slog.Int("failed", tally.Failed),
		slog.Bool("pool_exhausted", tally.Exhausted),
		slog.String(logging.FieldEventType, "pairing_complete"),
	)
	if tally.Exhausted {
		logging.WarnWithContext(p.logger, "audio pool exhausted", "audio_pool_exhausted",
			slog.String(logging.FieldErrorHint, "add audio files to paths.audio_dir and rerun"),
			slog.String(logging.FieldImpact, "remaining downloads left unpaired"),
		)
	}

	if fatalErr != nil {
		return outcomes, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
