package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"clipmatch/internal/audiopool"
	"clipmatch/internal/ledger"
	"clipmatch/internal/notifications"
	"clipmatch/internal/pipeline"
	"clipmatch/internal/pixabay"
	"clipmatch/internal/services"
	"clipmatch/internal/staging"
	"clipmatch/internal/testsupport"
)

type fakeSearcher struct {
	candidates []pixabay.Candidate
	err        error
	requests   []pixabay.SearchRequest
}

func (s *fakeSearcher) Search(_ context.Context, req pixabay.SearchRequest) ([]pixabay.Candidate, error) {
	s.requests = append(s.requests, req)
	return s.candidates, s.err
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Download(_ context.Context, url, dest string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return dest, os.WriteFile(dest, []byte(url), 0o644)
}

type fakeComposer struct{}

func (fakeComposer) Compose(_ context.Context, video, audio string, _ float64, output string) error {
	return os.WriteFile(output, []byte(video+"+"+audio), 0o644)
}

type recordingNotifier struct {
	completed []notifications.RunCounts
	errs      []error
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, c notifications.RunCounts) error {
	n.completed = append(n.completed, c)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.errs = append(n.errs, err)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	searcher *fakeSearcher
	fetcher  *fakeFetcher
	notifier *recordingNotifier
	ledger   *ledger.FileLedger
	pool     *audiopool.Pool
	pipe     *pipeline.Pipeline
	download string
	output   string
}

func newHarness(t *testing.T, tracks int, ids ...string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	l, err := ledger.OpenFile(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	resources := make([]audiopool.Resource, 0, tracks)
	for i := 0; i < tracks; i++ {
		path := filepath.Join(cfg.Paths.AudioDir, fmt.Sprintf("track%d.mp3", i))
		testsupport.WriteFile(t, path, 64)
		resources = append(resources, audiopool.Resource{Path: path, DurationSeconds: 20})
	}

	cands := make([]pixabay.Candidate, 0, len(ids))
	for _, id := range ids {
		cands = append(cands, pixabay.Candidate{RemoteID: id, SourceURL: "https://cdn.test/" + id, DurationSeconds: 40})
	}

	h := &harness{
		searcher: &fakeSearcher{candidates: cands},
		fetcher:  &fakeFetcher{},
		notifier: &recordingNotifier{},
		ledger:   l,
		pool:     audiopool.New(resources, cfg.Paths.ConsumedDir),
		download: cfg.Paths.DownloadDir,
		output:   cfg.Paths.OutputDir,
	}
	h.pipe = pipeline.New(pipeline.Options{
		Searcher:            h.searcher,
		Fetcher:             h.fetcher,
		Ledger:              l,
		Pool:                h.pool,
		Composer:            fakeComposer{},
		Notifier:            h.notifier,
		DownloadDir:         cfg.Paths.DownloadDir,
		OutputDir:           cfg.Paths.OutputDir,
		DownloadConcurrency: 3,
		PairConcurrency:     1,
		BufferSeconds:       5,
	})
	return h
}

func TestRunDownloadsPairsAndIsIdempotent(t *testing.T) {
	h := newHarness(t, 3, "1", "2", "3")
	ctx := services.WithRunID(context.Background(), "run-a")

	summary, err := h.pipe.Run(ctx, pipeline.Request{Query: "Ocean", PageSize: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID != "run-a" {
		t.Fatalf("expected run id from context, got %q", summary.RunID)
	}
	if summary.Downloaded != 3 || summary.Paired != 3 || summary.PairFailed != 0 || summary.PoolExhausted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, o := range summary.Pairings {
		if o.Pairing.TrimEndSeconds != 25 || !o.Pairing.Trimmed {
			t.Fatalf("unexpected pairing %+v", o.Pairing)
		}
		if _, err := os.Stat(o.Pairing.OutputPath); err != nil {
			t.Fatalf("missing output: %v", err)
		}
	}
	if len(h.notifier.completed) != 1 || h.notifier.completed[0].Paired != 3 {
		t.Fatalf("expected completion notification, got %+v", h.notifier.completed)
	}

	second, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "Ocean", PageSize: 3})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Skipped != 3 || second.Downloaded != 0 || second.Paired != 0 {
		t.Fatalf("second run should skip everything, got %+v", second)
	}
	if second.RunID == "" || second.RunID == summary.RunID {
		t.Fatalf("expected a fresh run id, got %q", second.RunID)
	}
	if h.fetcher.calls != 3 {
		t.Fatalf("expected 3 downloads overall, got %d", h.fetcher.calls)
	}
}

func TestRunReportsPoolExhaustion(t *testing.T) {
	h := newHarness(t, 2, "1", "2", "3")
	summary, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "q", PageSize: 3})
	if err != nil {
		t.Fatalf("exhaustion must not fail the run: %v", err)
	}
	if summary.Paired != 2 || summary.PairFailed != 1 || !summary.PoolExhausted {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !h.notifier.completed[0].PoolDrained {
		t.Fatal("expected notification to carry pool exhaustion")
	}
}

func TestRunSearchFailure(t *testing.T) {
	h := newHarness(t, 1, "1")
	h.searcher.err = services.Wrap(services.ErrSearch, "pixabay", "search", "http 500", nil)

	_, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "q", PageSize: 3})
	if !errors.Is(err, services.ErrSearch) {
		t.Fatalf("expected search error, got %v", err)
	}
	if len(h.notifier.errs) != 1 {
		t.Fatalf("expected error notification, got %d", len(h.notifier.errs))
	}
	if h.fetcher.calls != 0 {
		t.Fatal("nothing should download after a failed search")
	}
}

func TestRunRequiresQuery(t *testing.T) {
	h := newHarness(t, 1)
	if _, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.searcher.requests) != 0 {
		t.Fatal("search must not run without a query")
	}
}

func TestRunDownloadOnlySkipsPairing(t *testing.T) {
	h := newHarness(t, 2, "1", "2")
	summary, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "q", PageSize: 2, DownloadOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.PairingSkipped || summary.Paired != 0 || summary.Downloaded != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if h.pool.Available() != 2 {
		t.Fatal("download-only run must not touch the pool")
	}
}

func TestRunCleansStalePartials(t *testing.T) {
	h := newHarness(t, 0)
	partial := filepath.Join(h.download, "q_9.mp4"+staging.PartialSuffix)
	testsupport.WriteFile(t, partial, 10)

	summary, err := h.pipe.Run(context.Background(), pipeline.Request{Query: "q", PageSize: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.CleanedPartials != 1 {
		t.Fatalf("expected one partial removed, got %d", summary.CleanedPartials)
	}
	if _, err := os.Stat(partial); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial removed, stat err=%v", err)
	}
}
