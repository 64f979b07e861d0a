package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "er:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkFirstDelivery(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	already, err := manager.CheckAndMark(context.Background(), "domain-events", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "er:idempotency:evt:delivered:domain-events:"+eventID.String(), store.lastKey)
	assert.Equal(t, 24*time.Hour, store.lastTTL)
}

func TestCheckAndMarkAlreadyDelivered(t *testing.T) {
	manager, err := NewManager(&fakeStore{setNXResult: false}, time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMark(context.Background(), "domain-events", uuid.New())
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCheckAndMarkStoreError(t *testing.T) {
	manager, err := NewManager(&fakeStore{setNXError: errors.New("boom")}, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMark(context.Background(), "domain-events", uuid.New())
	assert.Error(t, err)
}

func TestCheckAndMarkValidatesInput(t *testing.T) {
	manager, err := NewManager(&fakeStore{setNXResult: true}, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMark(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = manager.CheckAndMark(context.Background(), "domain-events", uuid.Nil)
	assert.Error(t, err)
}

func TestForget(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	require.NoError(t, manager.Forget(context.Background(), "domain-events", eventID))
	assert.Equal(t, "er:idempotency:evt:delivered:domain-events:"+eventID.String(), store.lastDeleted)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(&fakeStore{}, -time.Second)
	assert.Error(t, err)
}
