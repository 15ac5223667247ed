package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipmatch/internal/config"
	"clipmatch/internal/deps"
)

const pixabayCheckTimeout = 10 * time.Second

// CheckPixabay verifies that the Pixabay API is reachable and the key is
// accepted. It issues a single one-page search and never retries.
func CheckPixabay(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Pixabay API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key (set PIXABAY_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, pixabayCheckTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("key", strings.TrimSpace(apiKey))
	query.Set("q", "nature")
	query.Set("per_page", "3")
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/videos/?"+query.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: "invalid base url"}
	}

	client := &http.Client{Timeout: pixabayCheckTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeRequestError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case http.StatusTooManyRequests:
		return Result{Name: name, Detail: "rate limited (try again later)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline executes.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaRequirements(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary))
}

func summarizeRequestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (API unreachable)"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// The request URL carries the API key.
		return fmt.Sprintf("request failed (%v)", urlErr.Err)
	}
	return "request failed"
}
