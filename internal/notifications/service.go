package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipmatch/internal/config"
)

const userAgent = "clipmatch/0.1"

// RunCounts is the batch outcome carried in a completion notification.
type RunCounts struct {
	Query       string
	Downloaded  int
	Skipped     int
	Failed      int
	Paired      int
	PairFailed  int
	PoolDrained bool
	Duration    time.Duration
}

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunCompleted(ctx context.Context, counts RunCounts) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, counts RunCounts) error {
	duration := counts.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "clipmatch - Run Complete"
	tags := []string{"clipmatch", "run", "completed"}
	priority := ""
	if counts.Failed > 0 || counts.PairFailed > 0 {
		title = "clipmatch - Run Complete (with errors)"
		tags = append(tags, "warning")
	}

	var b strings.Builder
	if q := strings.TrimSpace(counts.Query); q != "" {
		fmt.Fprintf(&b, "Query %q: ", q)
	}
	fmt.Fprintf(&b, "%d downloaded, %d skipped, %d failed; %d paired, %d pairing failures in %s",
		counts.Downloaded, counts.Skipped, counts.Failed, counts.Paired, counts.PairFailed, duration)
	if counts.PoolDrained {
		b.WriteString("\nAudio pool exhausted; add tracks before the next run")
		priority = "high"
	}

	return n.send(ctx, payload{title: title, message: b.String(), tags: tags, priority: priority})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "clipmatch - Error",
		message:  builder.String(),
		tags:     []string{"clipmatch", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "clipmatch - Test",
		message:  "Notification system test",
		tags:     []string{"clipmatch", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

// NewNoop returns a Service that sends nothing.
func NewNoop() Service { return noopService{} }

func (noopService) NotifyRunCompleted(context.Context, RunCounts) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
