package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmatch/internal/logging"
)

func TestCleanPartialsInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanPartials(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanPartialsRemovesOnlyOldPartFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldPart := filepath.Join(tmpDir, "waves_1.mp4.part")
	recentPart := filepath.Join(tmpDir, "waves_2.mp4.part")
	finished := filepath.Join(tmpDir, "waves_3.mp4")
	for _, path := range []string{oldPart, recentPart, finished} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPart, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}
	if err := os.Chtimes(finished, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanPartials(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldPart {
		t.Fatalf("expected only %s removed, got %v", oldPart, result.Removed)
	}
	if _, err := os.Stat(recentPart); err != nil {
		t.Fatalf("recent partial should remain: %v", err)
	}
	if _, err := os.Stat(finished); err != nil {
		t.Fatalf("finished download should remain: %v", err)
	}
}

func TestCleanPartialsZeroAgeRemovesAll(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"a.mp4.part", "b.mp4.part"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	result := CleanPartials(context.Background(), tmpDir, 0, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected both partials removed, got %v", result.Removed)
	}
}
