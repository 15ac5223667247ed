package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipmatch/internal/acquire"
	"clipmatch/internal/pipeline"
	"clipmatch/internal/services"
)

func renderSummary(summary pipeline.Summary, colorize bool) string {
	var b strings.Builder
	b.WriteString(sectionHeader(fmt.Sprintf("Run %q", summary.Query), colorize))

	rows := [][]string{
		{"Candidates", strconv.Itoa(summary.Candidates)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"Downloaded", strconv.Itoa(summary.Downloaded)},
		{"Download failures", strconv.Itoa(summary.Failed)},
	}
	if summary.PairingSkipped {
		rows = append(rows, []string{"Paired", "skipped (--download-only)"})
	} else {
		rows = append(rows,
			[]string{"Paired", strconv.Itoa(summary.Paired)},
			[]string{"Pairing failures", strconv.Itoa(summary.PairFailed)},
		)
	}
	rows = append(rows, []string{"Duration", summary.Duration.Round(time.Millisecond).String()})
	b.WriteString(outcomeLayout.render(rows))
	b.WriteString("\n")

	if details := failureRows(summary); len(details) > 0 {
		b.WriteString(failureLayout.render(details))
		b.WriteString("\n")
	}

	for _, c := range summaryChecks(summary) {
		b.WriteString(c.render(colorize) + "\n")
	}
	return b.String()
}

func summaryChecks(summary pipeline.Summary) []check {
	var checks []check
	if summary.PoolExhausted {
		checks = append(checks, check{Label: "Audio pool", Verdict: verdictWarn, Detail: "exhausted; add tracks to the audio directory and rerun"})
	}
	result := check{Label: "Result", Verdict: verdictPass, Detail: "completed"}
	if summary.Failed > 0 || summary.PairFailed > 0 {
		result = check{Label: "Result", Verdict: verdictWarn, Detail: "completed with failures"}
	}
	return append(checks, result)
}

func failureRows(summary pipeline.Summary) [][]string {
	var rows [][]string
	for _, r := range summary.Downloads {
		if r.Status != acquire.StatusFailed {
			continue
		}
		rows = append(rows, []string{r.RemoteID, "download", services.Classify(r.Err), errorText(r.Err)})
	}
	for _, o := range summary.Pairings {
		if o.Err == nil {
			continue
		}
		rows = append(rows, []string{o.RemoteID, "pair", services.Classify(o.Err), errorText(o.Err)})
	}
	return rows
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	const limit = 80
	if len(msg) > limit {
		msg = msg[:limit-3] + "..."
	}
	return msg
}

type summaryJSON struct {
	RunID          string         `json:"run_id"`
	Query          string         `json:"query"`
	Candidates     int            `json:"candidates"`
	Skipped        int            `json:"skipped"`
	Downloaded     int            `json:"downloaded"`
	Failed         int            `json:"failed"`
	Paired         int            `json:"paired"`
	PairFailed     int            `json:"pair_failed"`
	PoolExhausted  bool           `json:"pool_exhausted"`
	PairingSkipped bool           `json:"pairing_skipped"`
	DurationMS     int64          `json:"duration_ms"`
	Items          []itemJSONView `json:"items"`
}

type itemJSONView struct {
	RemoteID   string  `json:"remote_id"`
	Status     string  `json:"status"`
	SkipReason string  `json:"skip_reason,omitempty"`
	LocalPath  string  `json:"local_path,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
	AudioFile  string  `json:"audio_file,omitempty"`
	TrimEnd    float64 `json:"trim_end_seconds,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func summaryView(summary pipeline.Summary) summaryJSON {
	view := summaryJSON{
		RunID:          summary.RunID,
		Query:          summary.Query,
		Candidates:     summary.Candidates,
		Skipped:        summary.Skipped,
		Downloaded:     summary.Downloaded,
		Failed:         summary.Failed,
		Paired:         summary.Paired,
		PairFailed:     summary.PairFailed,
		PoolExhausted:  summary.PoolExhausted,
		PairingSkipped: summary.PairingSkipped,
		DurationMS:     summary.Duration.Milliseconds(),
		Items:          make([]itemJSONView, 0, len(summary.Downloads)),
	}
	pairings := make(map[string]int, len(summary.Pairings))
	for i, o := range summary.Pairings {
		pairings[o.RemoteID] = i
	}
	for _, r := range summary.Downloads {
		item := itemJSONView{
			RemoteID:   r.RemoteID,
			Status:     string(r.Status),
			SkipReason: r.SkipReason,
			LocalPath:  r.LocalPath,
			Error:      errorString(r.Err),
		}
		if idx, ok := pairings[r.RemoteID]; ok && r.Status == acquire.StatusSucceeded {
			o := summary.Pairings[idx]
			if o.Err != nil {
				item.Status = "pair_failed"
				item.Error = o.Err.Error()
			} else {
				item.Status = "paired"
				item.OutputPath = o.Pairing.OutputPath
				item.AudioFile = filepath.Base(o.Pairing.AudioPath)
				item.TrimEnd = o.Pairing.TrimEndSeconds
			}
		}
		view.Items = append(view.Items, item)
	}
	return view
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
