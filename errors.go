package stash

import (
	"errors"

	"github.com/stashkv/stash/internal/codec"
	"github.com/stashkv/stash/internal/storage"
)

// The error surface. All failures propagate synchronously; match with
// errors.Is. Storage and codec failures keep their underlying cause in
// the chain.
var (
	// ErrInvalidKey marks an empty key on a write path. Caller bug, never
	// retried.
	ErrInvalidKey = errors.New("stash: key must be a non-empty string")

	// ErrInvalidArgument marks other caller bugs: non-positive chunk
	// size, unusable table or database names.
	ErrInvalidArgument = errors.New("stash: invalid argument")

	// ErrTransactionActive is returned by a nested Transaction call. The
	// session does not implement savepoints, so nesting fails fast
	// instead of corrupting commit/rollback pairing.
	ErrTransactionActive = errors.New("stash: transaction already active")

	// ErrValueTooLarge means the encoded value exceeds the 10 MiB ceiling.
	ErrValueTooLarge = codec.ErrTooLarge

	// ErrEncoding means the value cannot be serialized.
	ErrEncoding = codec.ErrEncode

	// ErrDecoding means stored data did not decode. For engine-written
	// records this indicates corruption; it is surfaced, never coerced.
	ErrDecoding = codec.ErrDecode

	// ErrStorageBusy means the writer lock was not acquired within the
	// busy-wait budget. Transient; callers may retry with backoff.
	ErrStorageBusy = storage.ErrBusy

	// ErrStorageUnavailable means the backing directory or database file
	// cannot be created or opened. Fatal at construction time.
	ErrStorageUnavailable = storage.ErrUnavailable
)
