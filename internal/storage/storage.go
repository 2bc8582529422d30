// Package storage is the durable table layer under the stash engine.
//
// It owns the SQLite session (modernc.org/sqlite via database/sql), the
// schema of key-value tables, and the classification of driver errors into
// the transient/fatal categories the engine exposes to callers.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
)

// NeverExpires is the stored expiry for records without a time limit.
const NeverExpires int64 = -1

// DefaultBusyTimeout bounds how long a contended write blocks on the
// writer lock before failing with ErrBusy.
const DefaultBusyTimeout = 5 * time.Second

// SQLite primary result codes. Extended codes carry the primary code in
// the low byte.
const (
	codeBusy   = 5 // SQLITE_BUSY
	codeLocked = 6 // SQLITE_LOCKED
)

var (
	// ErrBusy means the writer lock was not acquired within the busy-wait
	// budget. Transient; the caller may retry, the engine does not.
	ErrBusy = errors.New("storage busy")

	// ErrUnavailable means the backing file or directory cannot be
	// created or opened.
	ErrUnavailable = errors.New("storage unavailable")
)

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Table methods run against either, so the engine decides per statement
// whether it joins a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is an open SQLite database file.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens (or creates) the database file at path.
// Use ":memory:" for an in-memory database.
//
// The DSN enables WAL journaling with relaxed-but-safe synchronous
// flushing, a busy-wait budget on the writer lock, and immediate write
// transactions. Pragmas travel in the DSN rather than a one-off Exec so
// they apply to every connection, not just the one that ran them.
func Open(path string, busyTimeout time.Duration) (*DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w: %w", path, ErrUnavailable, err)
	}

	// One handle is one session: a single connection keeps pragma scope
	// and transaction state unambiguous. Concurrency comes from multiple
	// handles on the same file, not from a pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %q: %w: %w", path, ErrUnavailable, err)
	}
	return &DB{sql: db, path: path}, nil
}

// SQL exposes the underlying handle for statements outside a transaction.
func (d *DB) SQL() *sql.DB { return d.sql }

// Path returns the database file path as opened.
func (d *DB) Path() string { return d.path }

// Begin starts a write transaction. The DSN's _txlock=immediate makes the
// transaction take the writer lock up front, so read-modify-write
// sequences serialize against other handles instead of failing at commit.
func (d *DB) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", Classify(err))
	}
	return tx, nil
}

// SizeBytes reports the approximate on-disk size of the database. It
// takes the Queryer like the Table methods: with a single-connection
// pool, a statement outside an open transaction would wait on the
// connection that transaction holds.
func (d *DB) SizeBytes(ctx context.Context, q Queryer) (int64, error) {
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page_count: %w", Classify(err))
	}
	if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page_size: %w", Classify(err))
	}
	return pageCount * pageSize, nil
}

// Close shuts down the database.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Classify maps driver errors onto the storage taxonomy. Lock contention
// that outlived the busy-wait budget becomes ErrBusy; everything else
// passes through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case codeBusy, codeLocked:
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
	}
	return err
}
