package acquire

// Status is the outcome of one candidate within a batch.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Skip reasons.
const (
	SkipLedger    = "ledger"
	SkipDuplicate = "duplicate"
)

// Result is the per-candidate outcome. Exactly one Result exists for each
// input candidate, at the candidate's input index.
type Result struct {
	Index           int
	RemoteID        string
	SourceURL       string
	LocalPath       string
	DurationSeconds float64
	Status          Status
	SkipReason      string
	Err             error
}

// Counts tallies results by status.
type Counts struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Tally counts results by status.
func Tally(results []Result) Counts {
	var c Counts
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			c.Succeeded++
		case StatusSkipped:
			c.Skipped++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Succeeded returns the successful results in input order.
func Succeeded(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Status == StatusSucceeded {
			out = append(out, r)
		}
	}
	return out
}
