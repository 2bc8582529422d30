package stash

import (
	"context"
	"fmt"
	"math"

	"github.com/stashkv/stash/internal/codec"
	"github.com/stashkv/stash/internal/expiry"
	"github.com/stashkv/stash/internal/storage"
)

// Increment atomically adds by to the integer stored under key and
// returns the result. The read and the write share one transaction, so
// concurrent increments from independent handles serialize instead of
// losing updates.
//
// A missing or expired record initializes the counter to by itself (not
// 0+by through a separate write), with no expiry. An existing record has
// only its value rewritten; its expiry is untouched. A stored value that
// is not an integer fails with ErrDecoding.
func (s *Stash) Increment(ctx context.Context, key string, by int64) (int64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}

	var result int64
	err := s.withTx(ctx, func(q storage.Queryer) error {
		row, found, err := s.table.Get(ctx, q, key)
		if err != nil {
			return err
		}

		if !found || expiry.IsExpired(row.Exp, s.now()) {
			enc, err := codec.Encode(by)
			if err != nil {
				return err
			}
			if err := s.table.Upsert(ctx, q, key, enc, expiry.Never); err != nil {
				return err
			}
			result = by
			return nil
		}

		cur, err := codec.DecodeInt(row.Value)
		if err != nil {
			return fmt.Errorf("increment %q: %w", key, err)
		}
		result = cur + by

		enc, err := codec.Encode(result)
		if err != nil {
			return err
		}
		return s.table.UpdateValue(ctx, q, key, enc)
	})
	if err != nil {
		return 0, err
	}
	s.stats.sets.Inc()
	return result, nil
}

// Decrement is Increment with a negated delta. math.MinInt64 has no
// int64 negation and is rejected with ErrInvalidArgument.
func (s *Stash) Decrement(ctx context.Context, key string, by int64) (int64, error) {
	if by == math.MinInt64 {
		return 0, fmt.Errorf("%w: decrement by %d cannot be negated", ErrInvalidArgument, by)
	}
	return s.Increment(ctx, key, -by)
}
