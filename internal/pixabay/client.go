package pixabay

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipmatch/internal/config"
	"clipmatch/internal/logging"
)

const (
	component        = "pixabay"
	defaultBaseURL   = "https://pixabay.com/api"
	userAgent        = "clipmatch/0.1"
	maxErrorBodySize = 512
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Quality    string
	SafeSearch bool
	// SearchTimeout bounds one search request.
	SearchTimeout time.Duration
	// DownloadTimeout bounds each download attempt.
	DownloadTimeout time.Duration
	Retry           RetryConfig
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Client talks to the Pixabay videos API.
type Client struct {
	baseURL         string
	apiKey          string
	quality         string
	safeSearch      bool
	searchTimeout   time.Duration
	downloadTimeout time.Duration
	retry           RetryConfig
	http            *http.Client
	logger          *slog.Logger
}

// New constructs a Client. The HTTP client carries no global timeout; every
// request is bounded by its own context instead so long downloads are not cut
// by a search-sized limit.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	quality := strings.ToLower(strings.TrimSpace(opts.Quality))
	if quality == "" {
		quality = "medium"
	}
	searchTimeout := opts.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = 30 * time.Second
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = 5 * time.Minute
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:         baseURL,
		apiKey:          strings.TrimSpace(opts.APIKey),
		quality:         quality,
		safeSearch:      opts.SafeSearch,
		searchTimeout:   searchTimeout,
		downloadTimeout: downloadTimeout,
		retry:           opts.Retry.normalized(),
		http:            client,
		logger:          logging.NewComponentLogger(opts.Logger, component),
	}
}

// NewFromConfig builds a Client from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(Options{
		BaseURL:         cfg.Pixabay.BaseURL,
		APIKey:          cfg.Pixabay.APIKey,
		Quality:         cfg.Pixabay.Quality,
		SafeSearch:      cfg.Pixabay.SafeSearch,
		SearchTimeout:   cfg.SearchTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
		Retry:           RetryConfig{MaxRetries: cfg.Pipeline.MaxRetries},
		Logger:          logger,
	})
}
