package idempotency

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys map[string]string
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"plw", "idempotency", scope, id}, ":")
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	seen, err := manager.CheckAndMarkProcessed(context.Background(), "order-notifications", eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = manager.CheckAndMarkProcessed(context.Background(), "order-notifications", eventID)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDeleteAllowsRetry(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	_, err = manager.CheckAndMarkProcessed(context.Background(), "order-notifications", eventID)
	require.NoError(t, err)

	require.NoError(t, manager.Delete(context.Background(), "order-notifications", eventID))

	seen, err := manager.CheckAndMarkProcessed(context.Background(), "order-notifications", eventID)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)

	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	assert.Error(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "consumer", uuid.Nil)
	assert.Error(t, err)
}
