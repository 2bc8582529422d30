package stash_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashkv/stash"
)

func TestTransaction_Commit(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(s *stash.Stash) error {
		if err := s.Set(ctx, "a", 1, stash.Forever); err != nil {
			return err
		}
		return s.Set(ctx, "b", 2, stash.Forever)
	})
	require.NoError(t, err)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestTransaction_RollbackPropagatesOriginalError(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(s *stash.Stash) error {
		if err := s.Set(ctx, "a", 1, stash.Forever); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := s.Get(ctx, "a", "absent")
	require.NoError(t, err)
	assert.Equal(t, "absent", v)
}

func TestTransaction_NestedFailsFast(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(s *stash.Stash) error {
		return s.Transaction(ctx, func(*stash.Stash) error {
			t.Fatal("nested callback must not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, stash.ErrTransactionActive)
}

func TestTransaction_BatchOperationsJoin(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(s *stash.Stash) error {
		if err := s.SetMultiple(ctx, map[string]any{"a": 1, "b": 2}, stash.Forever); err != nil {
			return err
		}
		if _, err := s.Increment(ctx, "n", 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The batch and the counter rolled back with the outer transaction.
	st, err := s.Stat(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}

func TestTransaction_StatInsideTransaction(t *testing.T) {
	s, _ := newTestStash(t)

	// Every query Stat issues must join the open transaction; with the
	// single-connection session, one that doesn't would wait forever on
	// the connection the transaction holds. Bound the call so a
	// regression fails instead of hanging the suite.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Transaction(ctx, func(s *stash.Stash) error {
		if err := s.Set(ctx, "a", 1, stash.Forever); err != nil {
			return err
		}
		st, err := s.Stat(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), st.Total)
		assert.Positive(t, st.SizeBytes)
		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_RollbackOnPanic(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	func() {
		defer func() {
			require.NotNil(t, recover())
		}()
		_ = s.Transaction(ctx, func(s *stash.Stash) error {
			if err := s.Set(ctx, "a", 1, stash.Forever); err != nil {
				return err
			}
			panic("kaboom")
		})
	}()

	v, err := s.Get(ctx, "a", "absent")
	require.NoError(t, err)
	assert.Equal(t, "absent", v)
}

func TestTransaction_UsableAfterRollback(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_ = s.Transaction(ctx, func(*stash.Stash) error { return boom })

	// The handle must be clean for the next transaction.
	err := s.Transaction(ctx, func(s *stash.Stash) error {
		return s.Set(ctx, "k", "v", stash.Forever)
	})
	require.NoError(t, err)

	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
