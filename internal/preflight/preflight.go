package preflight

import (
	"context"

	"clipmatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunAll checks every directory a run writes into, then the ledger. The
// Pixabay check is included only when online is set.
func RunAll(ctx context.Context, cfg *config.Config, online bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
		CheckDirectoryAccess("Consumed directory", cfg.Paths.ConsumedDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckLedgerFromConfig(ctx, cfg),
	}
	if online {
		results = append(results, CheckPixabayFromConfig(ctx, cfg))
	}
	return results
}
