package stash

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stashkv/stash/internal/storage"
)

// Transaction runs fn as one atomic unit: every operation fn performs on
// the handle joins the same transaction, committed when fn returns nil
// and rolled back (with the original error propagated unchanged) when
// it doesn't. Rollback also covers panics out of fn.
//
// The session does not implement savepoints. Calling Transaction from
// inside another Transaction's callback fails fast with
// ErrTransactionActive.
func (s *Stash) Transaction(ctx context.Context, fn func(*Stash) error) error {
	s.mu.Lock()
	if s.tx != nil {
		s.mu.Unlock()
		return ErrTransactionActive
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.tx = tx
	s.mu.Unlock()

	txid := uuid.NewString()[:8]
	s.log.Debug("transaction begin", "txn", txid)

	defer func() {
		// No-op once committed; otherwise this is the rollback path for
		// both returned errors and panics.
		_ = tx.Rollback()
		s.mu.Lock()
		s.tx = nil
		s.mu.Unlock()
	}()

	if err := fn(s); err != nil {
		s.log.Debug("transaction rollback", "txn", txid, "cause", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storage.Classify(err))
	}
	s.log.Debug("transaction commit", "txn", txid)
	return nil
}

// withTx runs fn atomically: inside the caller's open transaction when
// one is active, in a transaction of its own otherwise. Multi-statement
// mutations (batches, pull, counters) route through here so they are
// atomic on their own and still composable under Transaction.
func (s *Stash) withTx(ctx context.Context, fn func(q storage.Queryer) error) error {
	s.mu.Lock()
	if s.tx != nil {
		q := s.tx
		s.mu.Unlock()
		return fn(q)
	}
	s.mu.Unlock()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storage.Classify(err))
	}
	return nil
}
