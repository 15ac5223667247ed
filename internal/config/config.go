package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	AudioDir    string `toml:"audio_dir"`
	ConsumedDir string `toml:"consumed_dir"`
	OutputDir   string `toml:"output_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Pixabay contains configuration for the video search API.
type Pixabay struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Quality        string `toml:"quality"`
	SafeSearch     bool   `toml:"safesearch"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Search holds the default query used when the CLI does not supply one.
type Search struct {
	Query       string  `toml:"query"`
	PageSize    int     `toml:"page_size"`
	MinDuration float64 `toml:"min_duration"`
	MaxDuration float64 `toml:"max_duration"`
}

// Pipeline controls concurrency and pairing behaviour.
type Pipeline struct {
	DownloadConcurrency    int     `toml:"download_concurrency"`
	PairConcurrency        int     `toml:"pair_concurrency"`
	BufferSeconds          float64 `toml:"buffer_seconds"`
	DownloadTimeoutSeconds int     `toml:"download_timeout_seconds"`
	MaxRetries             int     `toml:"max_retries"`
}

// Ledger selects the persistence backend for processed identifiers.
type Ledger struct {
	// Backend is "file" (newline-delimited ids) or "sqlite".
	Backend string `toml:"backend"`
	// Path defaults to <state_dir>/processed.txt or <state_dir>/ledger.db.
	Path string `toml:"path"`
}

// Media contains external tool settings for probing and composition.
type Media struct {
	FFmpegBinary    string   `toml:"ffmpeg_binary"`
	FFprobeBinary   string   `toml:"ffprobe_binary"`
	AudioExtensions []string `toml:"audio_extensions"`
	VideoCodec      string   `toml:"video_codec"`
	AudioCodec      string   `toml:"audio_codec"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipmatch.
//
// Configuration sections by subsystem:
//   - Paths: download, audio pool, consumed, output, state and log directories
//   - Pixabay: search API credentials and rendition choice
//   - Search: default query and duration filters
//   - Pipeline: worker counts, trim buffer, download timeout and retries
//   - Ledger: processed-id persistence backend
//   - Media: ffmpeg/ffprobe binaries and codecs
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pixabay       Pixabay       `toml:"pixabay"`
	Search        Search        `toml:"search"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Ledger        Ledger        `toml:"ledger"`
	Media         Media         `toml:"media"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipmatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a pipeline run writes into.
// The audio directory is only created, never populated; an empty pool is legal.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DownloadDir,
		c.Paths.AudioDir,
		c.Paths.ConsumedDir,
		c.Paths.OutputDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the resolved ledger location for the configured backend.
func (c *Config) LedgerPath() string {
	if strings.TrimSpace(c.Ledger.Path) != "" {
		return c.Ledger.Path
	}
	if c.Ledger.Backend == LedgerBackendSQLite {
		return filepath.Join(c.Paths.StateDir, "ledger.db")
	}
	return filepath.Join(c.Paths.StateDir, "processed.txt")
}

// LockPath returns the advisory run lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "clipmatch.lock")
}

// DownloadTimeout returns the per-download time bound.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Pipeline.DownloadTimeoutSeconds) * time.Second
}

// SearchTimeout returns the HTTP timeout applied to search requests.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Pixabay.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
