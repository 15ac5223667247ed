package pixabay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"clipmatch/internal/config"
	"clipmatch/internal/logging"
	"clipmatch/internal/services"
)

// Validate checks a request before any network I/O.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return services.Wrap(services.ErrValidation, component, "search", "query must not be empty", nil)
	}
	if r.PageSize < 1 || r.PageSize > config.MaxPageSize {
		return services.Wrap(services.ErrValidation, component, "search",
			fmt.Sprintf("page size %d outside 1..%d", r.PageSize, config.MaxPageSize), nil)
	}
	if r.Page < 0 {
		return services.Wrap(services.ErrValidation, component, "search", "page must be >= 0 (0 means the first page)", nil)
	}
	if r.MinDuration < 0 {
		return services.Wrap(services.ErrValidation, component, "search", "min duration must be >= 0", nil)
	}
	if r.MaxDuration < 0 || (r.MaxDuration > 0 && r.MaxDuration < r.MinDuration) {
		return services.Wrap(services.ErrValidation, component, "search",
			fmt.Sprintf("max duration %v below min duration %v", r.MaxDuration, r.MinDuration), nil)
	}
	return nil
}

// Search returns the candidates for one page of results, filtered to the
// requested duration window and carrying the configured rendition URL.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Candidate, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrValidation, component, "search", "api key not configured", nil)
	}

	endpoint, err := c.searchURL(req)
	if err != nil {
		return nil, services.Wrap(services.ErrSearch, component, "search", "build url", err)
	}

	body, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrSearch, component, "search", fmt.Sprintf("query %q", req.Query), err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, services.Wrap(services.ErrSearch, component, "search", "decode response", err)
	}

	candidates := make([]Candidate, 0, len(resp.Hits))
	dropped := 0
	for _, h := range resp.Hits {
		if !withinDuration(h.Duration, req.MinDuration, req.MaxDuration) {
			dropped++
			continue
		}
		cand, ok := c.toCandidate(h)
		if !ok {
			dropped++
			continue
		}
		candidates = append(candidates, cand)
	}

	c.logger.Info("search complete",
		slog.String("query", req.Query),
		slog.Int("total_hits", resp.TotalHits),
		slog.Int("returned", len(resp.Hits)),
		slog.Int("candidates", len(candidates)),
		slog.Int("filtered", dropped),
		slog.String(logging.FieldEventType, "search_complete"),
	)
	return candidates, nil
}

func (c *Client) searchURL(req SearchRequest) (string, error) {
	u, err := url.Parse(c.baseURL + "/videos/")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("q", strings.TrimSpace(req.Query))
	q.Set("per_page", strconv.Itoa(req.PageSize))
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	q.Set("safesearch", strconv.FormatBool(c.safeSearch))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// toCandidate picks the configured rendition, falling back to smaller sizes.
func (c *Client) toCandidate(h hit) (Candidate, bool) {
	if h.ID <= 0 {
		return Candidate{}, false
	}
	start := 0
	for i, name := range Renditions {
		if name == c.quality {
			start = i
			break
		}
	}
	for _, name := range Renditions[start:] {
		r, ok := h.Videos[name]
		if !ok || strings.TrimSpace(r.URL) == "" {
			continue
		}
		return Candidate{
			RemoteID:        strconv.FormatInt(h.ID, 10),
			SourceURL:       strings.TrimSpace(r.URL),
			DurationSeconds: h.Duration,
			Tags:            h.Tags,
			PageURL:         h.PageURL,
			Rendition:       name,
		}, true
	}
	return Candidate{}, false
}

func withinDuration(d, minimum, maximum float64) bool {
	if d < minimum {
		return false
	}
	return maximum <= 0 || d <= maximum
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		body, err := c.getOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableError(err) || attempt == c.retry.MaxRetries || ctx.Err() != nil {
			break
		}
		delay := c.retry.retryDelay(attempt, err)
		c.logger.Debug("retrying search request", slog.Int("attempt", attempt+1), slog.Duration("backoff", delay), logging.Error(err))
		if err := waitBackoff(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, endpoint string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, redact(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.searchAttemptError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.searchAttemptError(ctx, reqCtx, err)
	}
	return body, nil
}

func (c *Client) searchAttemptError(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", errAttemptTimeout, c.searchTimeout)
	}
	return redact(err)
}
