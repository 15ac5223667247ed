package ledger

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// Report summarizes a read-only inspection of a ledger file.
type Report struct {
	Path          string
	Exists        bool
	Lines         int
	Unique        int
	Duplicates    int
	BlankLines    int
	TornFinalLine bool
}

// Check inspects a newline-delimited ledger without modifying it. A corrupt
// file returns the same persistence error OpenFile would.
func Check(path string) (Report, error) {
	report := Report{Path: path}
	if _, _, err := load(path); err != nil {
		return report, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, err
	}
	report.Exists = true
	if len(data) == 0 {
		return report, nil
	}
	report.TornFinalLine = data[len(data)-1] != '\n'

	seen := make(map[string]struct{})
	for _, raw := range bytes.Split(bytes.TrimSuffix(data, []byte{'\n'}), []byte{'\n'}) {
		line := strings.TrimSpace(strings.TrimSuffix(string(raw), "\r"))
		if line == "" {
			report.BlankLines++
			continue
		}
		report.Lines++
		if _, ok := seen[line]; ok {
			report.Duplicates++
			continue
		}
		seen[line] = struct{}{}
	}
	report.Unique = len(seen)
	return report, nil
}
