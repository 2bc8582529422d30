package stash_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stashkv/stash"
)

// End-to-end coverage of the multi-handle model: independent handles on
// one database file, which is how separate processes share a stash.

func TestE2E_ConcurrentIncrementNoLostUpdates(t *testing.T) {
	const (
		handles    = 4
		increments = 25
	)
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, handles)
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			s, err := stash.Open(dir)
			if err != nil {
				errs <- err
				return
			}
			defer s.Close()

			for j := 0; j < increments; j++ {
				if _, err := s.Increment(context.Background(), "counter", 1); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, err := stash.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(context.Background(), "counter", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(handles*increments), v, "increments must serialize, not interleave")
}

func TestE2E_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := stash.Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", map[string]any{"n": int64(1)}, stash.Forever))
	require.NoError(t, s.Close())

	s, err = stash.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": int64(1)}, v)
}

func TestE2E_TablesAndDatabasesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	settings, err := stash.Open(dir)
	require.NoError(t, err)
	defer settings.Close()

	queue, err := stash.Database(stash.DefaultDatabase).Table("queue").At(dir)
	require.NoError(t, err)
	defer queue.Close()

	other, err := stash.Database("other.db").At(dir)
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, settings.Set(ctx, "k", "settings", stash.Forever))
	require.NoError(t, queue.Set(ctx, "k", "queue", stash.Forever))
	require.NoError(t, other.Set(ctx, "k", "other", stash.Forever))

	for _, tc := range []struct {
		s    *stash.Stash
		want string
	}{
		{settings, "settings"},
		{queue, "queue"},
		{other, "other"},
	} {
		v, err := tc.s.Get(ctx, "k", nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v)
	}
}

func TestE2E_WriteVisibleToOtherHandle(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := stash.Open(dir)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := stash.Open(dir)
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, writer.Set(ctx, "k", "v", stash.Forever))

	v, err := reader.Get(ctx, "k", nil)
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
