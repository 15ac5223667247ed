package ledger

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"clipmatch/internal/config"
	"clipmatch/internal/services"
)

const component = "ledger"

// Ledger is the persistent set of remote identifiers that have been
// downloaded successfully. Identifiers are never removed.
type Ledger interface {
	// Contains reports whether id has been recorded.
	Contains(id string) bool
	// Record durably adds id. Recording a known id is a no-op.
	Record(ctx context.Context, id string) error
	// IDs returns the recorded identifiers in recording order.
	IDs() []string
	// Len returns the number of recorded identifiers.
	Len() int
	// Path returns the backing file location.
	Path() string
	Close() error
}

// Open loads the ledger for backend at path.
func Open(ctx context.Context, backend, path string) (Ledger, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", config.LedgerBackendFile:
		return OpenFile(path)
	case config.LedgerBackendSQLite:
		return OpenSQLite(ctx, path)
	default:
		return nil, services.Wrap(services.ErrValidation, component, "open", fmt.Sprintf("unknown backend %q", backend), nil)
	}
}

// OpenFromConfig opens the ledger configured in cfg.
func OpenFromConfig(ctx context.Context, cfg *config.Config) (Ledger, error) {
	return Open(ctx, cfg.Ledger.Backend, cfg.LedgerPath())
}

// ValidateID rejects identifiers that could not round-trip through a
// newline-delimited file.
func ValidateID(id string) error {
	if id == "" {
		return services.Wrap(services.ErrValidation, component, "record", "empty id", nil)
	}
	if strings.TrimSpace(id) != id {
		return services.Wrap(services.ErrValidation, component, "record", fmt.Sprintf("id %q has surrounding whitespace", id), nil)
	}
	if err := checkLine(id); err != nil {
		return services.Wrap(services.ErrValidation, component, "record", err.Error(), nil)
	}
	return nil
}

// checkLine reports a corrupt ledger entry: invalid UTF-8 or control bytes.
func checkLine(line string) error {
	if !utf8.ValidString(line) {
		return fmt.Errorf("invalid UTF-8 in %q", line)
	}
	for _, r := range line {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("control character %U in %q", r, line)
		}
	}
	return nil
}

type idSet struct {
	members map[string]struct{}
	order   []string
}

func newIDSet() idSet {
	return idSet{members: make(map[string]struct{})}
}

func (s *idSet) has(id string) bool {
	_, ok := s.members[id]
	return ok
}

func (s *idSet) add(id string) bool {
	if s.has(id) {
		return false
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *idSet) snapshot() []string {
	return append([]string(nil), s.order...)
}
