// Package stash is a lightweight persistent key-value store layered on an
// embedded SQLite database (modernc.org/sqlite, no cgo).
//
// It exposes a cache-like API: Set/Get/Has/Delete with batch variants,
// TTL expiry, atomic counters, callback-scoped transactions, chunked
// iteration and statistics. It targets single-machine use (CLI tools,
// local configuration, low-traffic apps) where several processes may
// each hold their own handle against the same file. It is not a
// distributed cache and provides no in-process locking beyond SQLite's
// single-writer discipline.
//
// Example:
//
//	s, err := stash.Open("/var/lib/myapp")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	ctx := context.Background()
//	if err := s.Set(ctx, "greeting", "hello", stash.In(time.Hour)); err != nil {
//		log.Fatal(err)
//	}
//	v, _ := s.Get(ctx, "greeting", nil)
package stash

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stashkv/stash/internal/storage"
)

// Stash is one handle on one table in one database file. A handle is
// single-threaded: it holds at most one open transaction and no cached
// rows, so every read reflects committed storage. For concurrent use,
// open one handle per goroutine or process.
type Stash struct {
	db    *storage.DB
	table storage.Table
	log   *slog.Logger
	now   func() time.Time
	stats *counters

	mu sync.Mutex
	tx *sql.Tx
}

// Open opens (or creates) a stash rooted at dir. The root directory is
// created if absent; the database file (DefaultDatabase unless overridden)
// and table (DefaultTable) are provisioned on first use. Multiple tables
// may live in one file and multiple files under one root.
func Open(dir string, opts ...Option) (*Stash, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if dir == "" {
		return nil, fmt.Errorf("%w: empty root directory", ErrInvalidArgument)
	}
	if strings.ContainsAny(cfg.database, `/\`) {
		return nil, fmt.Errorf("%w: database name %q must not contain path separators",
			ErrInvalidArgument, cfg.database)
	}

	ident, err := storage.NewIdent(cfg.table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir %q: %w: %w", dir, ErrStorageUnavailable, err)
	}

	db, err := storage.Open(filepath.Join(dir, cfg.database), cfg.busy)
	if err != nil {
		return nil, err
	}

	table := storage.NewTable(ident)
	if err := table.Create(context.Background(), db.SQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s := &Stash{
		db:    db,
		table: table,
		log:   cfg.logger.With(slog.String("table", table.Name())),
		now:   cfg.now,
		stats: newCounters(table.Name()),
	}
	s.log.Debug("stash open", "path", db.Path())
	return s, nil
}

// Builder is the two-step construction form:
//
//	s, err := stash.Database("jobs.db").Table("queue").At(dir)
type Builder struct {
	database string
	table    string
	opts     []Option
}

// Database starts a builder for the named database file.
func Database(name string) *Builder {
	return &Builder{database: name, table: DefaultTable}
}

// Table selects the table inside the database file.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Options adds further open options.
func (b *Builder) Options(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// At opens the stash under the given root directory. Equivalent to Open
// with WithDatabase and WithTable.
func (b *Builder) At(dir string) (*Stash, error) {
	opts := append([]Option{WithDatabase(b.database), WithTable(b.table)}, b.opts...)
	return Open(dir, opts...)
}

// Table returns the sanitized table name this handle operates on.
func (s *Stash) Table() string { return s.table.Name() }

// Path returns the database file path.
func (s *Stash) Path() string { return s.db.Path() }

// Close shuts down the handle. An open transaction is rolled back.
func (s *Stash) Close() error {
	s.mu.Lock()
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	s.mu.Unlock()
	return s.db.Close()
}

// q returns the session to run a statement against: the open transaction
// when one is active, the bare handle otherwise.
func (s *Stash) q() storage.Queryer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.db.SQL()
}
