package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile creates path, along with its parent directories, holding size
// filler bytes. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'B'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTracks drops placeholder audio files named names into dir. Durations
// come from whatever prober the test wires up, not the file contents.
func WriteTracks(t testing.TB, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		WriteFile(t, path, 64)
		paths = append(paths, path)
	}
	return paths
}

// SeedLedger writes ids to a newline-delimited ledger file at path.
func SeedLedger(t testing.TB, path string, ids ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := ""
	if len(ids) > 0 {
		content = strings.Join(ids, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed ledger %s: %v", path, err)
	}
}
