package stash

import (
	"context"
	"fmt"
	"sort"

	"github.com/stashkv/stash/internal/codec"
	"github.com/stashkv/stash/internal/expiry"
	"github.com/stashkv/stash/internal/storage"
)

// Item is one record yielded by Chunk, in key order within its page.
type Item struct {
	Key   string
	Value any
}

// Stats describes the table at one instant. Active + Expired == Total.
type Stats struct {
	Total     int64 // records physically present
	Active    int64 // records not past their expiry instant
	Expired   int64 // records past expiry but not yet swept
	SizeBytes int64 // approximate on-disk size of the database file
}

// Clear removes every record in the table with a single bulk statement.
// Unlike the batch operations it is deliberately not wrapped in a
// transaction; one DELETE is already atomic on its own.
func (s *Stash) Clear(ctx context.Context) error {
	return s.table.DeleteAll(ctx, s.q())
}

// All scans the whole table and returns every non-expired record decoded
// into a key-to-value map. Expired records encountered along the way are
// removed in one trailing transaction.
//
// The result is unbounded: for large tables use Chunk.
func (s *Stash) All(ctx context.Context) (map[string]any, error) {
	rows, err := s.table.ScanAll(ctx, s.q())
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make(map[string]any, len(rows))
	var expired []string
	for _, r := range rows {
		if expiry.IsExpired(r.Exp, now) {
			expired = append(expired, r.Key)
			continue
		}
		v, err := codec.Decode(r.Value)
		if err != nil {
			return nil, fmt.Errorf("all: key %q: %w", r.Key, err)
		}
		out[r.Key] = v
	}

	if len(expired) > 0 {
		err := s.withTx(ctx, func(q storage.Queryer) error {
			for _, k := range expired {
				if err := s.table.Delete(ctx, q, k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.log.Debug("reclaimed expired records during full scan", "removed", len(expired))
	}
	return out, nil
}

// Keys returns the sorted key set of All. It pays the same full scan and
// decode cost.
func (s *Stash) Keys(ctx context.Context) ([]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Chunk pages through the table in fixed-size windows, invoking fn once
// per page that contains at least one non-expired record. Iteration stops
// when a window comes back short, or when fn returns an error, which is
// propagated unchanged. Expired records are skipped but not deleted.
func (s *Stash) Chunk(ctx context.Context, size int, fn func(page []Item) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, size)
	}

	for offset := 0; ; offset += size {
		rows, err := s.table.Scan(ctx, s.q(), size, offset)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		now := s.now()
		page := make([]Item, 0, len(rows))
		for _, r := range rows {
			if expiry.IsExpired(r.Exp, now) {
				continue
			}
			v, err := codec.Decode(r.Value)
			if err != nil {
				return fmt.Errorf("chunk: key %q: %w", r.Key, err)
			}
			page = append(page, Item{Key: r.Key, Value: v})
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(rows) < size {
			return nil
		}
	}
}

// CleanExpired sweeps the table: one bulk delete of every record whose
// expiry instant has passed. Returns how many were removed.
func (s *Stash) CleanExpired(ctx context.Context) (int64, error) {
	n, err := s.table.DeleteExpired(ctx, s.q(), s.now().Unix())
	if err != nil {
		return 0, err
	}
	s.stats.sweeps.Inc()
	if n > 0 {
		s.log.Debug("expired sweep", "removed", n)
	}
	return n, nil
}

// Stat counts records and measures the database file. Consistent only
// against operations not running concurrently with it.
func (s *Stash) Stat(ctx context.Context) (Stats, error) {
	total, err := s.table.Count(ctx, s.q())
	if err != nil {
		return Stats{}, err
	}
	expired, err := s.table.CountExpired(ctx, s.q(), s.now().Unix())
	if err != nil {
		return Stats{}, err
	}
	size, err := s.db.SizeBytes(ctx, s.q())
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Total:     total,
		Active:    total - expired,
		Expired:   expired,
		SizeBytes: size,
	}, nil
}
