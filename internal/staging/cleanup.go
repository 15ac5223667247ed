package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipmatch/internal/logging"
)

// PartialSuffix marks an in-progress download.
const PartialSuffix = ".part"

// CleanResult contains the outcome of a partial-file cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanPartials removes leftover "*.part" files in dir that are older than
// maxAge. A zero maxAge removes every partial file, which is safe only while
// the caller holds the run lock.
func CleanPartials(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PartialSuffix) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove partial download", "partial_cleanup_failed",
				slog.String("path", path),
				logging.Error(err),
				slog.String(logging.FieldErrorHint, "check download_dir permissions"),
				slog.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed partial download",
				slog.String("path", path),
				slog.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				slog.String(logging.FieldEventType, "partial_cleanup"),
			)
		}
	}

	return result
}
