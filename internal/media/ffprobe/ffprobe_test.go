package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDurationSecondsPrefersFormat(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "10"}, {CodecType: "audio", Duration: "12.5"}},
		Format:  Format{Duration: "123.45"},
	}
	if got := result.DurationSeconds(); got != 123.45 {
		t.Fatalf("unexpected duration: %v", got)
	}
	if !result.HasStream("AUDIO") || !result.HasStream("video") || result.HasStream("subtitle") {
		t.Fatalf("unexpected stream classification: %+v", result.Streams)
	}
}

func TestDurationSecondsFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{Duration: "N/A"}, {Duration: "7.25"}, {Duration: "3"}},
		Format:  Format{Duration: "bad"},
	}
	if got := result.DurationSeconds(); got != 7.25 {
		t.Fatalf("unexpected fallback duration: %v", got)
	}
	if got := (Result{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected unknown duration 0, got %v", got)
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestProberDuration(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[{"codec_type":"audio"}],"format":{"duration":"20.000000"}}'`)
	prober := NewProber(stub)
	got, err := prober.Duration(context.Background(), "/tmp/track.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if got != 20 {
		t.Fatalf("unexpected duration %v", got)
	}
}

func TestProberDurationRejectsMissingDuration(t *testing.T) {
	stub := writeStub(t, `echo '{"streams":[],"format":{}}'`)
	if _, err := NewProber(stub).Duration(context.Background(), "/tmp/x.wav"); err == nil {
		t.Fatal("expected error for missing duration")
	}
}

func TestInspectReportsStderrOnFailure(t *testing.T) {
	stub := writeStub(t, `echo "Invalid data found" >&2; exit 1`)
	_, err := Inspect(context.Background(), stub, "/tmp/broken.mp3")
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
