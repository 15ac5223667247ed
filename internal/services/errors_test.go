package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"clipmatch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDownload, "pixabay", "download", "status 503", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pixabay", "download", "status 503"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "", "", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"persistence", services.Wrap(services.ErrPersistence, "ledger", "record", "", errors.New("disk full")), true},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), true},
		{"download", services.Wrap(services.ErrDownload, "pixabay", "download", "", nil), false},
		{"composition", services.Wrap(services.ErrComposition, "pairing", "compose", "", nil), false},
		{"exhausted", services.Wrap(services.ErrNoResourceAvailable, "pairing", "claim", "", services.ErrPoolEmpty), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsFatal(tc.err); got != tc.want {
				t.Fatalf("IsFatal(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	exhausted := services.Wrap(services.ErrNoResourceAvailable, "pairing", "claim", "", services.ErrPoolEmpty)
	if got := services.Classify(exhausted); got != "exhausted" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := services.Classify(errors.New("plain")); got != "error" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := services.Classify(nil); got != "" {
		t.Fatalf("expected empty label for nil, got %q", got)
	}
}
