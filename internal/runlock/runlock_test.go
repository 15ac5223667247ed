package runlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"clipmatch/internal/runlock"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "clipmatch.lock")

	first, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := runlock.Acquire(path); !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected ErrLocked while held, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	second, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer second.Release()
	if second.Path() != path {
		t.Fatalf("unexpected path %q", second.Path())
	}
}

func TestReleaseNilLock(t *testing.T) {
	var l *runlock.Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}
