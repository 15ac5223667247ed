package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
//
// The Pixabay API key is not required here: offline commands (ledger, pool,
// doctor) run without it. Commands that search call RequireAPIKey.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePixabay(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports a descriptive error when no Pixabay key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Pixabay.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("pixabay.api_key is required. Set PIXABAY_API_KEY (env or .env) or edit %s (create with 'clipmatch config init')", defaultPath)
}

func (c *Config) validatePaths() error {
	if c.Paths.AudioDir == "" {
		return errors.New("paths.audio_dir must be set")
	}
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	if filepath.Clean(c.Paths.ConsumedDir) == filepath.Clean(c.Paths.AudioDir) {
		return errors.New("paths.consumed_dir must differ from paths.audio_dir")
	}
	return nil
}

func (c *Config) validatePixabay() error {
	switch c.Pixabay.Quality {
	case "large", "medium", "small", "tiny":
		return nil
	default:
		return fmt.Errorf("pixabay.quality must be one of large, medium, small, tiny (got %q)", c.Pixabay.Quality)
	}
}

func (c *Config) validateSearch() error {
	if c.Search.PageSize < 1 || c.Search.PageSize > MaxPageSize {
		return fmt.Errorf("search.page_size must be between 1 and %d", MaxPageSize)
	}
	if c.Search.MinDuration < 0 {
		return errors.New("search.min_duration must be >= 0")
	}
	if c.Search.MaxDuration < 0 {
		return errors.New("search.max_duration must be >= 0")
	}
	if c.Search.MaxDuration > 0 && c.Search.MaxDuration < c.Search.MinDuration {
		return errors.New("search.max_duration must be >= search.min_duration")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.download_concurrency":     c.Pipeline.DownloadConcurrency,
		"pipeline.pair_concurrency":         c.Pipeline.PairConcurrency,
		"pipeline.download_timeout_seconds": c.Pipeline.DownloadTimeoutSeconds,
		"pixabay.timeout_seconds":           c.Pixabay.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Pipeline.BufferSeconds < 0 {
		return errors.New("pipeline.buffer_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case LedgerBackendFile, LedgerBackendSQLite:
		return nil
	default:
		return fmt.Errorf("ledger.backend must be %q or %q (got %q)", LedgerBackendFile, LedgerBackendSQLite, c.Ledger.Backend)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
