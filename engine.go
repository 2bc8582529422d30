package stash

import (
	"context"
	"fmt"
	"sort"

	"github.com/stashkv/stash/internal/codec"
	"github.com/stashkv/stash/internal/expiry"
	"github.com/stashkv/stash/internal/storage"
)

// Set writes a record, replacing value and expiry entirely when the key
// already exists. An empty key fails with ErrInvalidKey.
func (s *Stash) Set(ctx context.Context, key string, value any, ttl TTL) error {
	now := s.now()
	secs, ok := ttl.Normalize(now)
	return s.set(ctx, s.q(), key, value, expiry.Instant(secs, ok, now))
}

func (s *Stash) set(ctx context.Context, q storage.Queryer, key string, value any, exp int64) error {
	if key == "" {
		return ErrInvalidKey
	}
	enc, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if err := s.table.Upsert(ctx, q, key, enc, exp); err != nil {
		return err
	}
	s.stats.sets.Inc()
	return nil
}

// SetMultiple writes all pairs in one transaction with a TTL normalized
// once for the whole batch. Any invalid key or failed write rolls the
// entire batch back.
func (s *Stash) SetMultiple(ctx context.Context, pairs map[string]any, ttl TTL) error {
	now := s.now()
	secs, ok := ttl.Normalize(now)
	exp := expiry.Instant(secs, ok, now)

	// Deterministic write order keeps lock behavior predictable across
	// concurrent handles.
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return s.withTx(ctx, func(q storage.Queryer) error {
		for _, k := range keys {
			if err := s.set(ctx, q, k, pairs[k], exp); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the value stored under key, or def when the key is absent
// or expired. An expired record is deleted on the way out; that delete is
// absence housekeeping, not failure, so its error is only logged.
func (s *Stash) Get(ctx context.Context, key string, def any) (any, error) {
	s.stats.gets.Inc()

	row, found, err := s.table.Get(ctx, s.q(), key)
	if err != nil {
		return nil, err
	}
	if !found {
		s.stats.misses.Inc()
		return def, nil
	}
	if expiry.IsExpired(row.Exp, s.now()) {
		if derr := s.table.Delete(ctx, s.q(), key); derr != nil {
			s.log.Warn("lazy delete of expired record failed", "key", key, "err", derr)
		}
		s.stats.misses.Inc()
		return def, nil
	}

	v, err := codec.Decode(row.Value)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	s.stats.hits.Inc()
	return v, nil
}

// GetMultiple looks up every key, substituting def for absent or expired
// ones. Any empty key fails the whole call with ErrInvalidKey before any
// lookup runs; the result has one entry per requested key.
func (s *Stash) GetMultiple(ctx context.Context, keys []string, def any) (map[string]any, error) {
	for _, k := range keys {
		if k == "" {
			return nil, ErrInvalidKey
		}
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := s.Get(ctx, k, def)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Pull atomically reads and deletes a record: no other handle can
// observe the value without the delete, or the delete without the value.
// Absent and expired keys yield def.
func (s *Stash) Pull(ctx context.Context, key string, def any) (any, error) {
	out := def
	err := s.withTx(ctx, func(q storage.Queryer) error {
		row, found, err := s.table.Get(ctx, q, key)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		if err := s.table.Delete(ctx, q, key); err != nil {
			return err
		}
		s.stats.deletes.Inc()
		if expiry.IsExpired(row.Exp, s.now()) {
			return nil
		}
		v, err := codec.Decode(row.Value)
		if err != nil {
			return fmt.Errorf("pull %q: %w", key, err)
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether a non-expired record exists for key. The value is
// never read or decoded, and unlike Get an expired record is left in
// place for the next sweep.
func (s *Stash) Has(ctx context.Context, key string) (bool, error) {
	return s.table.Exists(ctx, s.q(), key, s.now().Unix())
}

// Delete removes a record. Deleting an absent key succeeds and changes
// nothing.
func (s *Stash) Delete(ctx context.Context, key string) error {
	if err := s.table.Delete(ctx, s.q(), key); err != nil {
		return err
	}
	s.stats.deletes.Inc()
	return nil
}

// DeleteMultiple removes all keys in one transaction.
func (s *Stash) DeleteMultiple(ctx context.Context, keys []string) error {
	return s.withTx(ctx, func(q storage.Queryer) error {
		for _, k := range keys {
			if err := s.table.Delete(ctx, q, k); err != nil {
				return err
			}
			s.stats.deletes.Inc()
		}
		return nil
	})
}
