package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clipmatch/internal/audiopool"
	"clipmatch/internal/config"
	"clipmatch/internal/deps"
	"clipmatch/internal/ledger"
	"clipmatch/internal/media/compose"
	"clipmatch/internal/media/ffprobe"
	"clipmatch/internal/notifications"
	"clipmatch/internal/pixabay"
)

// Runtime holds the collaborators built from configuration. Close releases
// the ledger.
type Runtime struct {
	Pipeline *Pipeline
	Ledger   ledger.Ledger
	Pool     *audiopool.Pool
	Client   *pixabay.Client
}

// Build opens the ledger, scans the audio pool and wires a Pipeline from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	l, err := ledger.OpenFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	prober := ffprobe.NewProber(deps.ResolveFFprobe(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary))
	pool, err := audiopool.Scan(ctx, cfg.Paths.AudioDir, audiopool.ScanOptions{
		ConsumedDir: cfg.Paths.ConsumedDir,
		Extensions:  cfg.Media.AudioExtensions,
		Prober:      prober,
		Logger:      logger,
	})
	if err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("scan audio pool: %w", err)
	}

	client := pixabay.NewFromConfig(cfg, logger)
	p := New(Options{
		Searcher:            client,
		Fetcher:             client,
		Ledger:              l,
		Pool:                pool,
		Composer:            compose.NewFFmpeg(cfg.Media.FFmpegBinary, cfg.Media.VideoCodec, cfg.Media.AudioCodec),
		Prober:              prober,
		Notifier:            notifications.NewService(cfg),
		Logger:              logger,
		DownloadDir:         cfg.Paths.DownloadDir,
		OutputDir:           cfg.Paths.OutputDir,
		DownloadConcurrency: cfg.Pipeline.DownloadConcurrency,
		PairConcurrency:     cfg.Pipeline.PairConcurrency,
		BufferSeconds:       cfg.Pipeline.BufferSeconds,
	})
	return &Runtime{Pipeline: p, Ledger: l, Pool: pool, Client: client}, nil
}

// Close releases the ledger.
func (r *Runtime) Close() error {
	if r == nil || r.Ledger == nil {
		return nil
	}
	return r.Ledger.Close()
}

// RequestFromConfig builds a Request from the [search] section, with query
// overriding the configured default when non-empty.
func RequestFromConfig(cfg *config.Config, query string) Request {
	if q := strings.TrimSpace(query); q != "" {
		query = q
	} else {
		query = cfg.Search.Query
	}
	return Request{
		Query:       query,
		PageSize:    cfg.Search.PageSize,
		MinDuration: cfg.Search.MinDuration,
		MaxDuration: cfg.Search.MaxDuration,
	}
}
