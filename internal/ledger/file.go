package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"clipmatch/internal/fileutil"
	"clipmatch/internal/services"
)

// FileLedger keeps identifiers in a newline-delimited UTF-8 file. Every
// Record issues one write followed by fsync before the id becomes visible.
type FileLedger struct {
	mu   sync.Mutex
	path string
	file *os.File
	ids  idSet
	// needsNewline is set when the last line on disk was torn mid-append.
	needsNewline bool
	// broken holds the first write failure; the file tail is then unknown.
	broken error
}

// OpenFile reads the ledger at path, creating it when missing.
func OpenFile(path string) (*FileLedger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, component, "open", "empty ledger path", nil)
	}

	ids, needsNewline, err := load(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, component, "open", "create ledger directory", err)
	}
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, component, "open", path, err)
	}
	if created {
		if err := fileutil.SyncDir(dir); err != nil {
			_ = file.Close()
			return nil, services.Wrap(services.ErrPersistence, component, "open", "sync ledger directory", err)
		}
	}

	return &FileLedger{path: path, file: file, ids: ids, needsNewline: needsNewline}, nil
}

func load(path string) (idSet, bool, error) {
	ids := newIDSet()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ids, false, nil
		}
		return ids, false, services.Wrap(services.ErrPersistence, component, "load", path, err)
	}
	if len(data) == 0 {
		return ids, false, nil
	}

	needsNewline := data[len(data)-1] != '\n'
	for lineNo, raw := range bytes.Split(data, []byte{'\n'}) {
		line := strings.TrimSuffix(string(raw), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := checkLine(line); err != nil {
			return ids, false, services.Wrap(services.ErrPersistence, component, "load", fmt.Sprintf("%s line %d", path, lineNo+1), err)
		}
		ids.add(strings.TrimSpace(line))
	}
	return ids, needsNewline, nil
}

// Contains reports whether id has been recorded.
func (l *FileLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.has(id)
}

// Record appends id and syncs the file before adding it to the in-memory set.
func (l *FileLedger) Record(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ids.has(id) {
		return nil
	}
	if l.broken != nil {
		return services.Wrap(services.ErrPersistence, component, "record", "ledger unusable after earlier failure", l.broken)
	}
	if l.file == nil {
		return services.Wrap(services.ErrPersistence, component, "record", "ledger closed", nil)
	}

	payload := make([]byte, 0, len(id)+2)
	if l.needsNewline {
		payload = append(payload, '\n')
	}
	payload = append(payload, id...)
	payload = append(payload, '\n')

	if _, err := l.file.Write(payload); err != nil {
		l.broken = err
		return services.Wrap(services.ErrPersistence, component, "record", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		l.broken = err
		return services.Wrap(services.ErrPersistence, component, "record", "fsync "+l.path, err)
	}

	l.needsNewline = false
	l.ids.add(id)
	return nil
}

// IDs returns the recorded identifiers in file order.
func (l *FileLedger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.snapshot()
}

// Len returns the number of distinct recorded identifiers.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids.order)
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string {
	return l.path
}

// Close releases the file handle. Recorded ids are already durable.
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
