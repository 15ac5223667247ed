package pixabay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestBackoffForCapsAtMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}.normalized()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for attempt, expected := range want {
		if got := cfg.backoffFor(attempt); got != expected {
			t.Fatalf("backoffFor(%d) = %s, want %s", attempt, got, expected)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&httpStatusError{StatusCode: http.StatusTooManyRequests}, true},
		{&httpStatusError{StatusCode: http.StatusBadGateway}, true},
		{&httpStatusError{StatusCode: http.StatusNotFound}, false},
		{fmt.Errorf("wrapped: %w", context.Canceled), false},
		{fmt.Errorf("%w after 1s", errAttemptTimeout), false},
		{errors.New("connection reset by peer"), true},
		{nil, false},
	}
	for _, tc := range tests {
		if got := isRetryableError(tc.err); got != tc.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Fatalf("unexpected seconds value %s", got)
	}
	if got := parseRetryAfter("-1"); got != 0 {
		t.Fatalf("expected negative to clamp, got %s", got)
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Fatalf("unexpected http-date value %s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("expected garbage to yield 0, got %s", got)
	}
}
