package stash_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashkv/stash"
)

func TestIncrement_FromAbsent(t *testing.T) {
	s, _ := newTestStash(t)

	n, err := s.Increment(context.Background(), "hits", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestIncrement_FromExpired(t *testing.T) {
	s, c := newTestStash(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "hits", 100, stash.Seconds(10)))
	c.Advance(11 * time.Second)

	// Expired counters re-initialize to the delta, not 100+5 and not 0+5
	// through a separate write.
	n, err := s.Increment(ctx, "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// The re-initialized counter has no expiry.
	c.Advance(time.Hour)
	v, err := s.Get(ctx, "hits", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestIncrement_Existing(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "hits", 10, stash.Forever))

	n, err := s.Increment(ctx, "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)

	n, err = s.Increment(ctx, "hits", -20)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), n)
}

func TestIncrement_KeepsExpiry(t *testing.T) {
	s, c := newTestStash(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "hits", 1, stash.Seconds(100)))

	_, err := s.Increment(ctx, "hits", 1)
	require.NoError(t, err)

	// Still alive before the original deadline...
	c.Advance(50 * time.Second)
	v, err := s.Get(ctx, "hits", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// ...and still gone after it: the increment must not refresh expiry.
	c.Advance(51 * time.Second)
	v, err = s.Get(ctx, "hits", "expired")
	require.NoError(t, err)
	assert.Equal(t, "expired", v)
}

func TestIncrement_NonIntegerValue(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "name", "alice", stash.Forever))

	_, err := s.Increment(ctx, "name", 1)
	assert.ErrorIs(t, err, stash.ErrDecoding)
}

func TestIncrement_EmptyKey(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Increment(context.Background(), "", 1)
	assert.ErrorIs(t, err, stash.ErrInvalidKey)
}

func TestDecrement_MinInt64(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Decrement(context.Background(), "credits", math.MinInt64)
	assert.ErrorIs(t, err, stash.ErrInvalidArgument)
}

func TestDecrement(t *testing.T) {
	s, _ := newTestStash(t)
	ctx := context.Background()

	n, err := s.Decrement(ctx, "credits", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), n)

	require.NoError(t, s.Set(ctx, "credits", 10, stash.Forever))

	n, err = s.Decrement(ctx, "credits", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}
