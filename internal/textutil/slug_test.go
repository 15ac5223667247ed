package textutil

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ocean Waves", "ocean_waves"},
		{"  canción de cuna  ", "cancion_de_cuna"},
		{"city/night: timelapse", "city_night_timelapse"},
		{"drone-shot 4K", "drone-shot_4k"},
		{"¿?¡!", "clip"},
		{"", "clip"},
	}
	for _, tc := range tests {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugCapsLength(t *testing.T) {
	got := Slug(strings.Repeat("forest ", 40))
	if len(got) > maxSlugLength {
		t.Fatalf("expected slug capped at %d, got %d (%q)", maxSlugLength, len(got), got)
	}
	if strings.HasSuffix(got, "_") {
		t.Fatalf("expected no trailing separator, got %q", got)
	}
}

func TestStripAccents(t *testing.T) {
	if got := StripAccents("música añejo"); got != "musica anejo" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` a/b:c*d?"e" `); got != "a-b-c-de" {
		t.Fatalf("unexpected result %q", got)
	}
}
