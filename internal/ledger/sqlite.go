package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"clipmatch/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `CREATE TABLE IF NOT EXISTS processed (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT NOT NULL UNIQUE
)`

// SQLiteLedger stores the identifier set in a single SQLite table. The set
// is loaded into memory at open; Record commits before updating it.
type SQLiteLedger struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
	ids  idSet
}

// OpenSQLite opens or creates the ledger database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteLedger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, component, "open", "empty ledger path", nil)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, services.Wrap(services.ErrPersistence, component, "open", path+" is a directory", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrPersistence, component, "open", "create ledger directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, component, "open", "open sqlite db", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrPersistence, component, "open", "apply "+pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrPersistence, component, "open", "create schema", err)
	}

	l := &SQLiteLedger{db: db, path: path, ids: newIDSet()}
	if err := l.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) load(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx, "SELECT remote_id FROM processed ORDER BY seq")
	if err != nil {
		return services.Wrap(services.ErrPersistence, component, "load", l.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return services.Wrap(services.ErrPersistence, component, "load", l.path, err)
		}
		if err := checkLine(id); err != nil {
			return services.Wrap(services.ErrPersistence, component, "load", l.path, err)
		}
		l.ids.add(id)
	}
	if err := rows.Err(); err != nil {
		return services.Wrap(services.ErrPersistence, component, "load", l.path, err)
	}
	return nil
}

// Contains reports whether id has been recorded.
func (l *SQLiteLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.has(id)
}

// Record inserts id and exposes it only after the statement commits.
func (l *SQLiteLedger) Record(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ids.has(id) {
		return nil
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := l.db.ExecContext(ctx, "INSERT OR IGNORE INTO processed (remote_id) VALUES (?)", id)
		return execErr
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, component, "record", l.path, err)
	}
	l.ids.add(id)
	return nil
}

// IDs returns the recorded identifiers in insertion order.
func (l *SQLiteLedger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids.snapshot()
}

// Len returns the number of recorded identifiers.
func (l *SQLiteLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids.order)
}

// Path returns the database location.
func (l *SQLiteLedger) Path() string {
	return l.path
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
