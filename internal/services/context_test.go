package services_test

import (
	"context"
	"testing"

	"clipmatch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithRemoteID(ctx, "12345")
	ctx = services.WithComponent(ctx, "acquire")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if rid, ok := services.RemoteIDFromContext(ctx); !ok || rid != "12345" {
		t.Fatalf("unexpected remote id: %v %v", rid, ok)
	}
	if comp, ok := services.ComponentFromContext(ctx); !ok || comp != "acquire" {
		t.Fatalf("unexpected component: %v %v", comp, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithRemoteID(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.RemoteIDFromContext(ctx); ok {
		t.Fatal("expected no remote id value")
	}
}
