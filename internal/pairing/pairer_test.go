package pairing_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipmatch/internal/acquire"
	"clipmatch/internal/audiopool"
	"clipmatch/internal/pairing"
	"clipmatch/internal/services"
)

type composeCall struct {
	video, audio, output string
	trimEnd              float64
}

type fakeComposer struct {
	mu    sync.Mutex
	calls []composeCall
	fail  func(video string) error
}

func (c *fakeComposer) Compose(ctx context.Context, video, audio string, trimEnd float64, output string) error {
	c.mu.Lock()
	c.calls = append(c.calls, composeCall{video: video, audio: audio, output: output, trimEnd: trimEnd})
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.fail != nil {
		if err := c.fail(video); err != nil {
			return err
		}
	}
	return os.WriteFile(output, []byte(video+"+"+audio), 0o644)
}

type fakeProber struct {
	durations map[string]float64
	calls     int
}

func (p *fakeProber) Duration(_ context.Context, path string) (float64, error) {
	p.calls++
	d, ok := p.durations[filepath.Base(path)]
	if !ok {
		return 0, errors.New("probe failed")
	}
	return d, nil
}

type fixture struct {
	dir      string
	consumed string
	output   string
	pool     *audiopool.Pool
	composer *fakeComposer
	prober   *fakeProber
	pairer   *pairing.Pairer
}

func newFixture(t *testing.T, audioDurations ...float64) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		consumed: filepath.Join(dir, "audio", "consumed"),
		output:   filepath.Join(dir, "output"),
		composer: &fakeComposer{},
		prober:   &fakeProber{durations: map[string]float64{}},
	}
	for _, sub := range []string{"audio", "videos", "output"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	resources := make([]audiopool.Resource, 0, len(audioDurations))
	for i, d := range audioDurations {
		path := filepath.Join(dir, "audio", fmt.Sprintf("track%d.mp3", i))
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		resources = append(resources, audiopool.Resource{Path: path, DurationSeconds: d})
	}
	f.pool = audiopool.New(resources, f.consumed, audiopool.WithRand(rand.NewPCG(7, 11)))
	f.pairer = pairing.New(f.pool, f.composer, f.prober, pairing.Options{OutputDir: f.output})
	return f
}

func (f *fixture) video(t *testing.T, id string, duration float64) acquire.Result {
	t.Helper()
	path := filepath.Join(f.dir, "videos", "ocean_"+id+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return acquire.Result{RemoteID: id, LocalPath: path, DurationSeconds: duration, Status: acquire.StatusSucceeded}
}

func TestTrimWindow(t *testing.T) {
	tests := []struct {
		name                 string
		video, audio, buffer float64
		wantEnd              float64
		wantTrimmed          bool
	}{
		{"video longer than audio plus buffer", 40, 20, 5, 25, true},
		{"video shorter than audio", 10, 20, 5, 10, false},
		{"video exactly audio plus buffer", 25, 20, 5, 25, false},
		{"zero buffer", 30, 20, 0, 20, true},
		{"video within buffer", 22, 20, 5, 22, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			end, trimmed := pairing.TrimWindow(tc.video, tc.audio, tc.buffer)
			if end != tc.wantEnd || trimmed != tc.wantTrimmed {
				t.Fatalf("TrimWindow(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tc.video, tc.audio, tc.buffer, end, trimmed, tc.wantEnd, tc.wantTrimmed)
			}
		})
	}
}

func TestPairComposesAndRetires(t *testing.T) {
	f := newFixture(t, 20)
	res := f.video(t, "42", 40)

	got, err := f.pairer.Pair(context.Background(), res, 5)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if got.TrimEndSeconds != 25 || !got.Trimmed {
		t.Fatalf("unexpected trim: %+v", got)
	}
	wantOut := filepath.Join(f.output, "ocean_42_final.mp4")
	if got.OutputPath != wantOut {
		t.Fatalf("unexpected output %q want %q", got.OutputPath, wantOut)
	}
	if _, err := os.Stat(wantOut); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.consumed, "track0.mp3")); err != nil {
		t.Fatalf("expected audio retired into consumed dir: %v", err)
	}
	if f.pool.Available() != 0 {
		t.Fatal("retired audio must not return to the pool")
	}
	if len(f.composer.calls) != 1 || f.composer.calls[0].trimEnd != 25 {
		t.Fatalf("unexpected compose calls %+v", f.composer.calls)
	}
}

func TestPairProbesUnknownVideoDuration(t *testing.T) {
	f := newFixture(t, 20)
	res := f.video(t, "9", 0)
	f.prober.durations[filepath.Base(res.LocalPath)] = 10

	got, err := f.pairer.Pair(context.Background(), res, 5)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if got.VideoDuration != 10 || got.TrimEndSeconds != 10 || got.Trimmed {
		t.Fatalf("unexpected pairing %+v", got)
	}
	if f.prober.calls != 1 {
		t.Fatalf("expected one probe, got %d", f.prober.calls)
	}
}

func TestPairUnprobeableVideoKeepsAudio(t *testing.T) {
	f := newFixture(t, 20)
	res := f.video(t, "9", 0)

	if _, err := f.pairer.Pair(context.Background(), res, 5); !errors.Is(err, services.ErrComposition) {
		t.Fatalf("expected composition error, got %v", err)
	}
	if f.pool.Available() != 1 {
		t.Fatal("audio must stay available when the video cannot be probed")
	}
}

func TestPairReleasesClaimOnComposeFailure(t *testing.T) {
	f := newFixture(t, 20)
	f.composer.fail = func(string) error { return errors.New("ffmpeg exited 1") }
	res := f.video(t, "1", 30)

	_, err := f.pairer.Pair(context.Background(), res, 5)
	if !errors.Is(err, services.ErrComposition) {
		t.Fatalf("expected ErrComposition, got %v", err)
	}
	if f.pool.Available() != 1 {
		t.Fatalf("expected claim released, available=%d", f.pool.Available())
	}
	if _, err := os.Stat(filepath.Join(f.dir, "audio", "track0.mp3")); err != nil {
		t.Fatalf("released audio must stay in place: %v", err)
	}
}

func TestPairReleasesClaimOnCancellation(t *testing.T) {
	f := newFixture(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	f.composer.fail = func(string) error {
		cancel()
		return context.Canceled
	}
	res := f.video(t, "1", 30)

	_, err := f.pairer.Pair(ctx, res, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if errors.Is(err, services.ErrComposition) {
		t.Fatal("cancellation must not be reported as a composition failure")
	}
	if f.pool.Available() != 1 {
		t.Fatal("expected claim released after cancellation")
	}
}

func TestPairEmptyPool(t *testing.T) {
	f := newFixture(t)
	_, err := f.pairer.Pair(context.Background(), f.video(t, "1", 30), 5)
	if !errors.Is(err, services.ErrNoResourceAvailable) {
		t.Fatalf("expected ErrNoResourceAvailable, got %v", err)
	}
}

func TestPairAllStopsAfterExhaustion(t *testing.T) {
	f := newFixture(t, 20, 20, 20)
	var videos []acquire.Result
	for i := 0; i < 5; i++ {
		videos = append(videos, f.video(t, fmt.Sprintf("%d", i), 30))
	}

	outcomes, err := f.pairer.PairAll(context.Background(), videos, 5, 1)
	if err != nil {
		t.Fatalf("exhaustion is not fatal: %v", err)
	}
	tally := pairing.Summarize(outcomes)
	if tally.Paired != 3 || tally.Failed != 2 || !tally.Exhausted {
		t.Fatalf("unexpected tally %+v", tally)
	}
	for _, o := range outcomes[3:] {
		if !errors.Is(o.Err, services.ErrNoResourceAvailable) {
			t.Fatalf("expected exhaustion for %s, got %v", o.RemoteID, o.Err)
		}
	}
	if len(f.composer.calls) != 3 {
		t.Fatalf("expected 3 compositions, got %d", len(f.composer.calls))
	}

	used := map[string]bool{}
	for _, o := range outcomes[:3] {
		if used[o.Pairing.AudioPath] {
			t.Fatalf("audio %s used twice", o.Pairing.AudioPath)
		}
		used[o.Pairing.AudioPath] = true
	}
	entries, err := os.ReadDir(f.consumed)
	if err != nil {
		t.Fatalf("read consumed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 consumed tracks, got %d", len(entries))
	}
}

// handoffPool reports an empty claim only after a sibling released its
// track, so the release always races ahead of the exhaustion check.
type handoffPool struct {
	*audiopool.Pool
	emptySeen    chan struct{}
	released     chan struct{}
	emptyOnce    sync.Once
	releasedOnce sync.Once
}

func (p *handoffPool) Claim() (audiopool.Resource, error) {
	r, err := p.Pool.Claim()
	if err != nil {
		p.emptyOnce.Do(func() { close(p.emptySeen) })
		select {
		case <-p.released:
		case <-time.After(2 * time.Second):
		}
	}
	return r, err
}

func (p *handoffPool) Release(r audiopool.Resource) {
	p.Pool.Release(r)
	p.releasedOnce.Do(func() { close(p.released) })
}

func TestPairAllRetriesAfterSiblingReleasesTrack(t *testing.T) {
	f := newFixture(t, 20)
	pool := &handoffPool{Pool: f.pool, emptySeen: make(chan struct{}), released: make(chan struct{})}
	var composeCalls atomic.Int32
	f.composer.fail = func(string) error {
		if composeCalls.Add(1) != 1 {
			return nil
		}
		select {
		case <-pool.emptySeen:
		case <-time.After(2 * time.Second):
		}
		return errors.New("encoder crashed")
	}
	pairer := pairing.New(pool, f.composer, f.prober, pairing.Options{OutputDir: f.output})
	videos := []acquire.Result{f.video(t, "a", 30), f.video(t, "b", 30), f.video(t, "c", 30)}

	outcomes, err := pairer.PairAll(context.Background(), videos, 5, 2)
	if err != nil {
		t.Fatalf("PairAll: %v", err)
	}
	var composition, starved int
	for _, o := range outcomes[:2] {
		switch {
		case errors.Is(o.Err, services.ErrComposition):
			composition++
		case errors.Is(o.Err, services.ErrNoResourceAvailable):
			starved++
		}
	}
	if composition != 1 || starved != 1 {
		t.Fatalf("expected one composition failure and one empty claim, got %+v", outcomes[:2])
	}
	if !outcomes[2].Paired() {
		t.Fatalf("released track should pair the last video, got %v", outcomes[2].Err)
	}
}

func TestPairAllCompositionFailureIsIsolated(t *testing.T) {
	f := newFixture(t, 20, 20)
	f.composer.fail = func(video string) error {
		if strings.Contains(video, "_bad") {
			return errors.New("corrupt input")
		}
		return nil
	}
	videos := []acquire.Result{f.video(t, "bad", 30), f.video(t, "good", 30)}

	outcomes, err := f.pairer.PairAll(context.Background(), videos, 5, 2)
	if err != nil {
		t.Fatalf("PairAll: %v", err)
	}
	if !errors.Is(outcomes[0].Err, services.ErrComposition) {
		t.Fatalf("expected composition failure, got %v", outcomes[0].Err)
	}
	if !outcomes[1].Paired() {
		t.Fatalf("expected sibling paired, got %v", outcomes[1].Err)
	}
	if f.pool.Available() != 1 {
		t.Fatalf("failed pairing must release its audio, available=%d", f.pool.Available())
	}
}

func TestPairAllRetireFailureIsFatal(t *testing.T) {
	f := newFixture(t, 20, 20)
	// A regular file where the consumed directory should be makes every retire fail.
	if err := os.WriteFile(f.consumed, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	videos := []acquire.Result{f.video(t, "1", 30), f.video(t, "2", 30)}

	outcomes, err := f.pairer.PairAll(context.Background(), videos, 5, 1)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected outcome per video, got %d", len(outcomes))
	}
	if outcomes[1].Paired() {
		t.Fatal("no video after a retire failure should be paired")
	}
}

func TestPairAllRejectsNonPositiveConcurrency(t *testing.T) {
	f := newFixture(t, 20)
	if _, err := f.pairer.PairAll(context.Background(), nil, 5, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
