package audiopool

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"clipmatch/internal/logging"
	"clipmatch/internal/services"
)

// DurationProber reports the length of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ScanOptions controls directory discovery.
type ScanOptions struct {
	// ConsumedDir is never entered and receives retired files.
	ConsumedDir string
	// Extensions are matched case-insensitively, with leading dot.
	Extensions []string
	Prober     DurationProber
	Logger     *slog.Logger
	Rand       rand.Source
}

// DefaultExtensions are the audio types picked up when none are configured.
var DefaultExtensions = []string{".mp3", ".wav"}

// Scan builds a pool from the audio files under dir. Hidden entries and the
// consumed directory are skipped; files whose duration cannot be probed are
// left out with a warning. A missing dir yields an empty pool.
func Scan(ctx context.Context, dir string, opts ScanOptions) (*Pool, error) {
	logger := logging.NewComponentLogger(opts.Logger, component)
	if opts.Prober == nil {
		return nil, services.Wrap(services.ErrValidation, component, "scan", "duration prober is required", nil)
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	consumed := filepath.Clean(opts.ConsumedDir)

	poolOpts := []Option{WithLogger(opts.Logger)}
	if opts.Rand != nil {
		poolOpts = append(poolOpts, WithRand(opts.Rand))
	}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("audio directory missing; pool is empty",
			slog.String("dir", dir),
			slog.String(logging.FieldEventType, "audio_dir_missing"),
			slog.String(logging.FieldErrorHint, "add .mp3 or .wav files to paths.audio_dir"),
			slog.String(logging.FieldImpact, "every video will report no audio available"),
		)
		return New(nil, opts.ConsumedDir, poolOpts...), nil
	}

	var resources []Resource
	skipped := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != dir && (filepath.Clean(path) == consumed || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		duration, err := opts.Prober.Duration(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			skipped++
			logging.WarnWithContext(logger, "audio probe failed; file excluded", "audio_probe_failed",
				slog.String("audio", d.Name()),
				logging.Error(err),
				slog.String(logging.FieldErrorHint, "check the file plays with ffprobe"),
				slog.String(logging.FieldImpact, "file not used for pairing"),
			)
			return nil
		}
		resources = append(resources, Resource{Path: path, DurationSeconds: duration})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrValidation, component, "scan", "read audio directory", err)
	}

	logger.Info("audio pool scanned",
		slog.String("dir", dir),
		slog.Int("resources", len(resources)),
		slog.Int("excluded", skipped),
		slog.String(logging.FieldEventType, "audio_pool_scanned"),
	)
	return New(resources, opts.ConsumedDir, poolOpts...), nil
}
