package preflight

import (
	"context"
	"fmt"
	"strings"

	"clipmatch/internal/config"
	"clipmatch/internal/ledger"
)

// CheckPixabayFromConfig evaluates Pixabay status from config and connectivity.
func CheckPixabayFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Pixabay API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Pixabay.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key (set PIXABAY_API_KEY)"}
	}
	return CheckPixabay(ctx, cfg.Pixabay.BaseURL, cfg.Pixabay.APIKey)
}

// CheckLedgerFromConfig opens the configured ledger read-only where possible
// and reports how many ids it holds.
func CheckLedgerFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Ledger"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	path := cfg.LedgerPath()
	if cfg.Ledger.Backend == config.LedgerBackendFile {
		report, err := ledger.Check(path)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: describeReport(report)}
	}

	l, err := ledger.Open(ctx, cfg.Ledger.Backend, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer l.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (sqlite, %d ids)", path, l.Len())}
}

func describeReport(r ledger.Report) string {
	if !r.Exists {
		return fmt.Sprintf("%s (not created yet)", r.Path)
	}
	detail := fmt.Sprintf("%s (%d ids", r.Path, r.Unique)
	if r.Duplicates > 0 {
		detail += fmt.Sprintf(", %d duplicate lines", r.Duplicates)
	}
	if r.TornFinalLine {
		detail += ", torn final line"
	}
	return detail + ")"
}
