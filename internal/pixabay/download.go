package pixabay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"clipmatch/internal/fileutil"
	"clipmatch/internal/logging"
	"clipmatch/internal/services"
	"clipmatch/internal/staging"
)

// Download fetches sourceURL into dest and returns dest. Bytes are streamed
// into dest+".part" and the file is renamed only after a complete, synced
// copy, so dest never holds a truncated clip. Retries start from byte zero.
func (c *Client) Download(ctx context.Context, sourceURL, dest string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" || strings.TrimSpace(dest) == "" {
		return "", services.Wrap(services.ErrValidation, component, "download", "source url and destination are required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", services.Wrap(services.ErrDownload, component, "download", "create download directory", err)
	}

	logger := logging.WithContext(ctx, c.logger)
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		written, err := c.downloadOnce(ctx, sourceURL, dest)
		if err == nil {
			logger.Debug("download stored",
				slog.String("path", dest),
				slog.Int64("bytes", written),
				slog.Int("attempt", attempt+1),
			)
			return dest, nil
		}
		lastErr = err
		if !isRetryableError(err) || attempt == c.retry.MaxRetries || ctx.Err() != nil {
			break
		}
		delay := c.retry.retryDelay(attempt, err)
		logger.Warn("download attempt failed; retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			logging.Error(err),
			slog.String(logging.FieldEventType, "download_retry"),
		)
		if err := waitBackoff(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return "", services.Wrap(services.ErrDownload, component, "download", filepath.Base(dest), lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, sourceURL, dest string) (int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, redact(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, c.attemptError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return 0, &httpStatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	partial := dest + staging.PartialSuffix
	file, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = file.Close()
			_ = os.Remove(partial)
		}
	}()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		return written, c.attemptError(ctx, reqCtx, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return written, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if err := file.Sync(); err != nil {
		return written, fmt.Errorf("sync partial file: %w", err)
	}
	if err := file.Close(); err != nil {
		return written, fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		return written, fmt.Errorf("finalize download: %w", err)
	}
	committed = true
	_ = fileutil.SyncDir(filepath.Dir(dest))
	return written, nil
}

// attemptError distinguishes a per-attempt timeout from caller cancellation.
func (c *Client) attemptError(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", errAttemptTimeout, c.downloadTimeout)
	}
	return redact(err)
}
