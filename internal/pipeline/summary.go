package pipeline

import (
	"time"

	"clipmatch/internal/acquire"
	"clipmatch/internal/notifications"
	"clipmatch/internal/pairing"
)

// Summary is the user-visible outcome of a run.
type Summary struct {
	RunID           string
	Query           string
	Candidates      int
	CleanedPartials int

	Downloaded int
	Skipped    int
	Failed     int

	Paired         int
	PairFailed     int
	PoolExhausted  bool
	PairingSkipped bool

	Downloads []acquire.Result
	Pairings  []pairing.Outcome
	Duration  time.Duration
}

func (s *Summary) applyDownloads(results []acquire.Result) {
	s.Downloads = results
	counts := acquire.Tally(results)
	s.Downloaded = counts.Succeeded
	s.Skipped = counts.Skipped
	s.Failed = counts.Failed
}

func (s *Summary) applyPairings(outcomes []pairing.Outcome) {
	s.Pairings = outcomes
	tally := pairing.Summarize(outcomes)
	s.Paired = tally.Paired
	s.PairFailed = tally.Failed
	s.PoolExhausted = tally.Exhausted
}

// Counts converts the summary into a notification payload.
func (s Summary) Counts() notifications.RunCounts {
	return notifications.RunCounts{
		Query:       s.Query,
		Downloaded:  s.Downloaded,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Paired:      s.Paired,
		PairFailed:  s.PairFailed,
		PoolDrained: s.PoolExhausted,
		Duration:    s.Duration,
	}
}
