package audiopool

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"clipmatch/internal/fileutil"
	"clipmatch/internal/logging"
	"clipmatch/internal/services"
)

const component = "audiopool"

// State is the lifecycle position of a resource.
type State string

const (
	StateAvailable State = "available"
	StateClaimed   State = "claimed"
	StateConsumed  State = "consumed"
)

// Resource is one audio track. Path identifies it within a pool.
type Resource struct {
	Path            string
	DurationSeconds float64
	State           State
	// ConsumedPath is set once the resource has been retired.
	ConsumedPath string
}

// Name returns the file name of the resource.
func (r Resource) Name() string {
	return filepath.Base(r.Path)
}

// Pool hands out audio resources so that no track is ever used twice.
// All transitions happen under mu, which is never held across file I/O, so
// Claim never blocks on I/O. Retire moves files under its own moveMu.
type Pool struct {
	mu          sync.Mutex
	moveMu      sync.Mutex
	consumedDir string
	rng         *rand.Rand
	logger      *slog.Logger
	move        func(src, dst string) error

	entries   map[string]*Resource
	available []string
	// retiring holds claimed paths whose move is in progress.
	retiring map[string]struct{}
}

// Option customizes a Pool.
type Option func(*Pool)

// WithRand replaces the random source used by Claim.
func WithRand(src rand.Source) Option {
	return func(p *Pool) {
		if src != nil {
			p.rng = rand.New(src)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logging.NewComponentLogger(logger, component)
	}
}

// New builds a pool from an injected resource set. Every resource starts
// available regardless of its State field; duplicate paths are collapsed.
func New(resources []Resource, consumedDir string, opts ...Option) *Pool {
	seed := uint64(time.Now().UnixNano())
	p := &Pool{
		consumedDir: consumedDir,
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		logger:      logging.NewComponentLogger(nil, component),
		move:        fileutil.MoveFile,
		entries:     make(map[string]*Resource, len(resources)),
		available:   make([]string, 0, len(resources)),
		retiring:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, r := range resources {
		if _, dup := p.entries[r.Path]; dup || r.Path == "" {
			continue
		}
		r.State = StateAvailable
		entry := r
		p.entries[r.Path] = &entry
		p.available = append(p.available, r.Path)
	}
	return p
}

// Claim removes a uniformly random available resource from circulation.
// It returns ErrPoolEmpty immediately when nothing is available.
func (p *Pool) Claim() (Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.available) == 0 {
		return Resource{}, services.Wrap(services.ErrPoolEmpty, component, "claim", "no audio resources available", nil)
	}
	idx := p.rng.IntN(len(p.available))
	path := p.available[idx]
	last := len(p.available) - 1
	p.available[idx] = p.available[last]
	p.available = p.available[:last]

	entry := p.entries[path]
	entry.State = StateClaimed
	return *entry, nil
}

// Release returns a claimed resource to the available set. Releasing a
// resource that is not claimed, or is being retired, has no effect.
func (p *Pool) Release(r Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[r.Path]
	if !ok || entry.State != StateClaimed {
		return
	}
	if _, busy := p.retiring[r.Path]; busy {
		return
	}
	entry.State = StateAvailable
	p.available = append(p.available, entry.Path)
}

// Retire moves a claimed resource into the consumed directory and marks it
// consumed. A name already taken in the consumed directory gets a numeric
// suffix. On failure the resource stays claimed and the error carries
// ErrPersistence.
func (p *Pool) Retire(r Resource) error {
	entry, err := p.beginRetire(r)
	if err != nil {
		return err
	}

	target, err := p.moveToConsumed(entry)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.retiring, entry.Path)
	if err != nil {
		return err
	}
	stored := p.entries[entry.Path]
	stored.State = StateConsumed
	stored.ConsumedPath = target
	p.logger.Info("audio resource retired",
		slog.String("audio", stored.Name()),
		slog.String("consumed_path", target),
		slog.String(logging.FieldEventType, "audio_retired"),
	)
	return nil
}

// beginRetire marks a claimed entry as retiring and returns a copy of it.
func (p *Pool) beginRetire(r Resource) (Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[r.Path]
	if !ok {
		return Resource{}, services.Wrap(services.ErrValidation, component, "retire", fmt.Sprintf("unknown resource %s", r.Path), nil)
	}
	if _, busy := p.retiring[r.Path]; busy || entry.State != StateClaimed {
		state := string(entry.State)
		if busy {
			state = "already retiring"
		}
		return Resource{}, services.Wrap(services.ErrValidation, component, "retire", fmt.Sprintf("resource %s is %s, not claimed", r.Name(), state), nil)
	}
	p.retiring[r.Path] = struct{}{}
	return *entry, nil
}

// moveToConsumed relocates the file. moveMu keeps concurrent retires from
// picking the same collision-free name.
func (p *Pool) moveToConsumed(entry Resource) (string, error) {
	p.moveMu.Lock()
	defer p.moveMu.Unlock()

	if err := os.MkdirAll(p.consumedDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, component, "retire", "create consumed directory", err)
	}
	target, err := fileutil.UniquePath(p.consumedDir, filepath.Base(entry.Path))
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, component, "retire", "choose consumed name", err)
	}
	if err := p.move(entry.Path, target); err != nil {
		return "", services.Wrap(services.ErrPersistence, component, "retire", fmt.Sprintf("move %s", entry.Name()), err)
	}
	if err := fileutil.SyncDir(p.consumedDir); err != nil {
		p.logger.Warn("consumed directory sync failed",
			logging.Error(err),
			slog.String(logging.FieldEventType, "retire_sync_failed"),
			slog.String(logging.FieldErrorHint, "the move completed but may not survive a crash"),
			slog.String(logging.FieldImpact, "none unless the host crashes"),
		)
	}
	return target, nil
}

// Available reports how many resources can currently be claimed.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// Len reports the number of resources the pool was built with.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Snapshot returns a copy of every resource sorted by path.
func (p *Pool) Snapshot() []Resource {
	p.mu.Lock()
	out := make([]Resource, 0, len(p.entries))
	for _, entry := range p.entries {
		out = append(out, *entry)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ConsumedDir returns the directory retired resources are moved into.
func (p *Pool) ConsumedDir() string {
	return p.consumedDir
}
