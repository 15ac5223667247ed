package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePixabay()
	c.normalizePipeline()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ConsumedDir) == "" {
		c.Paths.ConsumedDir = filepath.Join(c.Paths.AudioDir, defaultConsumedDirName)
	}
	if c.Paths.ConsumedDir, err = expandPath(c.Paths.ConsumedDir); err != nil {
		return fmt.Errorf("paths.consumed_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePixabay() {
	c.Pixabay.APIKey = strings.TrimSpace(c.Pixabay.APIKey)
	if c.Pixabay.APIKey == "" {
		if value, ok := os.LookupEnv("PIXABAY_API_KEY"); ok {
			c.Pixabay.APIKey = strings.TrimSpace(value)
		}
	}
	c.Pixabay.BaseURL = strings.TrimRight(strings.TrimSpace(c.Pixabay.BaseURL), "/")
	if c.Pixabay.BaseURL == "" {
		c.Pixabay.BaseURL = defaultPixabayBaseURL
	}
	c.Pixabay.Quality = strings.ToLower(strings.TrimSpace(c.Pixabay.Quality))
	if c.Pixabay.Quality == "" {
		c.Pixabay.Quality = defaultPixabayQuality
	}
	if c.Pixabay.TimeoutSeconds <= 0 {
		c.Pixabay.TimeoutSeconds = defaultPixabayTimeoutSeconds
	}
	c.Search.Query = strings.TrimSpace(c.Search.Query)
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.DownloadTimeoutSeconds <= 0 {
		c.Pipeline.DownloadTimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	if c.Pipeline.PairConcurrency <= 0 {
		c.Pipeline.PairConcurrency = defaultPairConcurrency
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = 0
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerBackendFile
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = ""
		return nil
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	c.Media.VideoCodec = strings.TrimSpace(c.Media.VideoCodec)
	if c.Media.VideoCodec == "" {
		c.Media.VideoCodec = defaultVideoCodec
	}
	c.Media.AudioCodec = strings.TrimSpace(c.Media.AudioCodec)
	if c.Media.AudioCodec == "" {
		c.Media.AudioCodec = defaultAudioCodec
	}

	exts := make([]string, 0, len(c.Media.AudioExtensions))
	seen := make(map[string]struct{}, len(c.Media.AudioExtensions))
	for _, ext := range c.Media.AudioExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAudioExtensions...)
	}
	c.Media.AudioExtensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
