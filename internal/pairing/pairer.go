package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"clipmatch/internal/acquire"
	"clipmatch/internal/audiopool"
	"clipmatch/internal/logging"
	"clipmatch/internal/media/compose"
	"clipmatch/internal/services"
)

const (
	component    = "pairing"
	outputSuffix = "_final.mp4"
)

// Pool is the subset of audiopool.Pool the pairer needs.
type Pool interface {
	Claim() (audiopool.Resource, error)
	Retire(audiopool.Resource) error
	Release(audiopool.Resource)
	Available() int
}

// Prober measures media durations.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Pairing describes one composed output.
type Pairing struct {
	RemoteID       string
	VideoPath      string
	AudioPath      string
	OutputPath     string
	VideoDuration  float64
	AudioDuration  float64
	TrimEndSeconds float64
	Trimmed        bool
}

// Options configures a Pairer.
type Options struct {
	OutputDir string
	Logger    *slog.Logger
}

// Pairer joins downloaded videos with unused audio tracks.
type Pairer struct {
	pool      Pool
	composer  compose.Composer
	prober    Prober
	outputDir string
	logger    *slog.Logger
}

// New constructs a Pairer.
func New(pool Pool, composer compose.Composer, prober Prober, opts Options) *Pairer {
	return &Pairer{
		pool:      pool,
		composer:  composer,
		prober:    prober,
		outputDir: opts.OutputDir,
		logger:    logging.NewComponentLogger(opts.Logger, component),
	}
}

// TrimWindow returns the cut point for a video paired with audio plus a
// trailing buffer. The clip is trimmed only when the video outlasts both.
func TrimWindow(videoSeconds, audioSeconds, bufferSeconds float64) (float64, bool) {
	limit := audioSeconds + bufferSeconds
	if videoSeconds > limit {
		return limit, true
	}
	return videoSeconds, false
}

// OutputName returns the composed file name for a video path.
func OutputName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + outputSuffix
}

// Pair claims one audio resource and composes it with the video in res.
//
// An empty pool yields ErrNoResourceAvailable. A compose failure releases the
// claim and yields ErrComposition. A successful compose retires the resource;
// a retire failure carries ErrPersistence and must abort the run.
func (p *Pairer) Pair(ctx context.Context, res acquire.Result, bufferSeconds float64) (Pairing, error) {
	ctx = services.WithRemoteID(ctx, res.RemoteID)
	logger := logging.WithContext(ctx, p.logger)

	pairing := Pairing{
		RemoteID:      res.RemoteID,
		VideoPath:     res.LocalPath,
		VideoDuration: res.DurationSeconds,
	}
	if err := ctx.Err(); err != nil {
		return pairing, err
	}
	if strings.TrimSpace(res.LocalPath) == "" {
		return pairing, services.Wrap(services.ErrValidation, component, "pair", "result has no local path", nil)
	}

	if pairing.VideoDuration <= 0 {
		d, err := p.probe(ctx, res.LocalPath)
		if err != nil {
			return pairing, services.Wrap(services.ErrComposition, component, "probe video", filepath.Base(res.LocalPath), err)
		}
		pairing.VideoDuration = d
	}

	audio, err := p.pool.Claim()
	if err != nil {
		if errors.Is(err, services.ErrPoolEmpty) {
			return pairing, services.Wrap(services.ErrNoResourceAvailable, component, "claim", "audio pool exhausted", err)
		}
		return pairing, err
	}
	pairing.AudioPath = audio.Path
	pairing.AudioDuration = audio.DurationSeconds

	if pairing.AudioDuration <= 0 {
		d, err := p.probe(ctx, audio.Path)
		if err != nil {
			p.pool.Release(audio)
			if ctx.Err() != nil {
				return pairing, ctx.Err()
			}
			return pairing, services.Wrap(services.ErrComposition, component, "probe audio", audio.Name(), err)
		}
		pairing.AudioDuration = d
	}

	pairing.TrimEndSeconds, pairing.Trimmed = TrimWindow(pairing.VideoDuration, pairing.AudioDuration, bufferSeconds)
	pairing.OutputPath = filepath.Join(p.outputDir, OutputName(res.LocalPath))

	logger.Debug("composing clip",
		slog.String("video", filepath.Base(pairing.VideoPath)),
		slog.String("audio", audio.Name()),
		slog.Float64("trim_end", pairing.TrimEndSeconds),
		slog.Bool("trimmed", pairing.Trimmed),
	)

	if err := p.composer.Compose(ctx, pairing.VideoPath, pairing.AudioPath, pairing.TrimEndSeconds, pairing.OutputPath); err != nil {
		p.pool.Release(audio)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pairing, fmt.Errorf("compose interrupted: %w", ctxErr)
		}
		logging.WarnWithContext(logger, "composition failed; audio released", "compose_failed",
			slog.String("audio", audio.Name()),
			logging.Error(err),
			slog.String(logging.FieldErrorHint, "run with --log-level debug and check ffmpeg output"),
			slog.String(logging.FieldImpact, "video left unpaired"),
		)
		return pairing, services.Wrap(services.ErrComposition, component, "compose", filepath.Base(pairing.VideoPath), err)
	}

	if err := p.pool.Retire(audio); err != nil {
		logging.ErrorWithContext(logger, "audio retire failed", "audio_retire_failed",
			slog.String("audio", audio.Name()),
			logging.Error(err),
			slog.String(logging.FieldErrorHint, "check permissions on paths.consumed_dir"),
		)
		return pairing, err
	}

	logger.Info("clip composed",
		slog.String("output", pairing.OutputPath),
		slog.String("audio", audio.Name()),
		slog.Float64("trim_end", pairing.TrimEndSeconds),
		slog.Bool("trimmed", pairing.Trimmed),
		slog.String(logging.FieldEventType, "clip_composed"),
	)
	return pairing, nil
}

func (p *Pairer) probe(ctx context.Context, path string) (float64, error) {
	if p.prober == nil {
		return 0, errors.New("duration unknown and no prober configured")
	}
	return p.prober.Duration(ctx, path)
}
