package pixabay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls retry and backoff for API and download requests.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	return c
}

func (c RetryConfig) backoffFor(attempt int) time.Duration {
	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return backoff
}

var retryStatusCodes = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// errAttemptTimeout marks a request that exceeded its own time bound while the
// caller was still waiting; the caller's deadline stays context.DeadlineExceeded.
var errAttemptTimeout = errors.New("request timed out")

type httpStatusError struct {
	StatusCode int
	RetryAfter time.Duration
	Body       string
}

func (e *httpStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("status=%d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("status=%d", e.StatusCode)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errAttemptTimeout) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		_, ok := retryStatusCodes[statusErr.StatusCode]
		return ok
	}
	return true
}

// retryDelay honours Retry-After when the server asks for longer than the
// computed backoff.
func (c RetryConfig) retryDelay(attempt int, err error) time.Duration {
	backoff := c.backoffFor(attempt)
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > backoff {
		backoff = min(statusErr.RetryAfter, c.MaxBackoff*4)
	}
	return backoff
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// redact strips the request URL from transport errors so the API key never
// reaches logs.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
