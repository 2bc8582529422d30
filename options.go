package stash

import (
	"io"
	"log/slog"
	"time"

	"github.com/stashkv/stash/internal/expiry"
	"github.com/stashkv/stash/internal/storage"
)

// Defaults for the open-by-path constructor.
const (
	DefaultDatabase = "auxdata.db"
	DefaultTable    = "settings"
)

// TTL is a caller-supplied time-to-live for a record. The zero value
// (Forever) never expires.
type TTL = expiry.TTL

// Forever is the TTL of records without a time limit.
var Forever = expiry.Forever

// Seconds is a TTL of n whole seconds from now. Zero expires the record
// at the write instant; a negative count means no expiry.
func Seconds(n int64) TTL { return expiry.Seconds(n) }

// In is a TTL expressed as a duration from now. Negative durations clamp
// to zero (immediate expiry).
func In(d time.Duration) TTL { return expiry.In(d) }

type config struct {
	database string
	table    string
	busy     time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func defaultConfig() config {
	return config{
		database: DefaultDatabase,
		table:    DefaultTable,
		busy:     storage.DefaultBusyTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
}

// Option configures Open.
type Option func(*config)

// WithDatabase selects the database file name inside the root directory.
func WithDatabase(name string) Option {
	return func(c *config) { c.database = name }
}

// WithTable selects the table inside the database file. The name is
// reduced to a safe identifier alphabet at open time.
func WithTable(name string) Option {
	return func(c *config) { c.table = name }
}

// WithBusyTimeout bounds how long contended writes block on the writer
// lock before failing with ErrStorageBusy.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busy = d }
}

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for TTL math. Tests drive
// expiry deterministically with this instead of sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
