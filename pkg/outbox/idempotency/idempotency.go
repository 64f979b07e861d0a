package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the key-value surface the guard needs. The redis client
// implements it.
type Store interface {
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// Manager tracks delivered event IDs per destination using SETNX with a TTL.
// Keys follow the `er:idempotency:evt:delivered:<destination>:<event_id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a guard that remembers delivered events for ttl.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMark returns true if the event was already delivered to
// destination and otherwise marks it as delivered.
func (m *Manager) CheckAndMark(ctx context.Context, destination string, eventID uuid.UUID) (bool, error) {
	key, err := m.deliveredKey(destination, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Forget clears the mark so a failed delivery can be retried.
func (m *Manager) Forget(ctx context.Context, destination string, eventID uuid.UUID) error {
	key, err := m.deliveredKey(destination, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) deliveredKey(destination string, eventID uuid.UUID) (string, error) {
	if destination == "" {
		return "", errors.New("destination name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:delivered:%s", destination)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
