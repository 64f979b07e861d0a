package db

import (
	"context"
	"sync/atomic"

	"gorm.io/gorm"
)

// Tx is a scoped transaction. Every handle it hands out runs on the same
// underlying transaction until Commit or Rollback.
type Tx struct {
	tx       *gorm.DB
	tracking tracker
	done     atomic.Bool
}

// NewTx wraps a transaction begun elsewhere, e.g. inside Client.WithTx.
func NewTx(tx *gorm.DB) *Tx {
	return &Tx{tx: tx}
}

func (t *Tx) DB(ctx context.Context) *gorm.DB {
	return t.tx.WithContext(ctx)
}

func (t *Tx) SetChangeTracking(enabled bool) {
	t.tracking.set(enabled)
}

func (t *Tx) ChangeTracking() bool {
	return t.tracking.active()
}

func (t *Tx) Commit() error {
	if !t.done.CompareAndSwap(false, true) {
		return gorm.ErrInvalidTransaction
	}
	return t.tx.Commit().Error
}

// Rollback aborts the transaction. It is a no-op after Commit so callers
// can defer it unconditionally.
func (t *Tx) Rollback() error {
	if !t.done.CompareAndSwap(false, true) {
		return nil
	}
	return t.tx.Rollback().Error
}
