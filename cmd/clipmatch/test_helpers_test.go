package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmatch/internal/config"
	"clipmatch/internal/testsupport"
)

const (
	ffprobeScript = `echo '{"streams":[{"codec_type":"audio"}],"format":{"duration":"20.000000"}}'`
	ffmpegScript  = `for last; do :; done
printf composed > "$last"`
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("PIXABAY_API_KEY", "")
	srv := newPixabayServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(srv.URL+"/api"),
		testsupport.WithScript("ffprobe", ffprobeScript),
		testsupport.WithScript("ffmpeg", ffmpegScript),
	)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "clipmatch.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, server: srv}
}

func newPixabayServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/videos/":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"total":2,"totalHits":2,"hits":[
				{"id":11,"tags":"sea, waves","duration":40,"videos":{"medium":{"url":"%[1]s/media/11.mp4"}}},
				{"id":12,"tags":"sea","duration":10,"videos":{"medium":{"url":"%[1]s/media/12.mp4"}}}]}`, srv.URL)
		case strings.HasPrefix(r.URL.Path, "/media/"):
			_, _ = w.Write([]byte("video-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
download_dir = %q
audio_dir = %q
consumed_dir = %q
output_dir = %q
state_dir = %q
log_dir = %q

[pixabay]
api_key = %q
base_url = %q

[ledger]
backend = %q

[media]
ffmpeg_binary = %q
ffprobe_binary = %q
`,
		cfg.Paths.DownloadDir,
		cfg.Paths.AudioDir,
		cfg.Paths.ConsumedDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Pixabay.APIKey,
		cfg.Pixabay.BaseURL,
		cfg.Ledger.Backend,
		cfg.Media.FFmpegBinary,
		cfg.Media.FFprobeBinary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
