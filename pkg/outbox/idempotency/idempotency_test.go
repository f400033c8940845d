package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	marks  map[string]time.Duration
	setErr error
	delErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{marks: map[string]time.Duration{}}
}

func (s *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.marks[key]; ok {
		return false, nil
	}
	s.marks[key] = ttl
	return true, nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	if s.delErr != nil {
		return s.delErr
	}
	for _, key := range keys {
		delete(s.marks, key)
	}
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "ck:idempotency:" + scope + ":" + id
}

func TestRunSkipsRedelivery(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	calls := 0
	handle := func(context.Context) error { calls++; return nil }

	skipped, err := manager.Run(context.Background(), "analytics-export", eventID, handle)
	require.NoError(t, err)
	require.False(t, skipped)

	skipped, err = manager.Run(context.Background(), "analytics-export", eventID, handle)
	require.NoError(t, err)
	require.True(t, skipped)
	require.Equal(t, 1, calls)

	key := "ck:idempotency:evt:processed:analytics-export:" + eventID.String()
	require.Equal(t, 24*time.Hour, store.marks[key])
}

func TestRunScopesByConsumer(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()
	noop := func(context.Context) error { return nil }

	_, err = manager.Run(context.Background(), "analytics-export", eventID, noop)
	require.NoError(t, err)

	skipped, err := manager.Run(context.Background(), "realtime", eventID, noop)
	require.NoError(t, err)
	require.False(t, skipped)
}

func TestRunClearsMarkOnFailure(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()
	boom := errors.New("bigquery unavailable")

	skipped, err := manager.Run(context.Background(), "analytics-export", eventID, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, skipped)
	require.Empty(t, store.marks)

	calls := 0
	skipped, err = manager.Run(context.Background(), "analytics-export", eventID, func(context.Context) error { calls++; return nil })
	require.NoError(t, err)
	require.False(t, skipped)
	require.Equal(t, 1, calls)
}

func TestRunJoinsClearFailure(t *testing.T) {
	store := newMemoryStore()
	store.delErr = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	boom := errors.New("bigquery unavailable")

	_, err = manager.Run(context.Background(), "analytics-export", uuid.New(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "redis down")
}

func TestRunStoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.setErr = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	called := false
	_, err = manager.Run(context.Background(), "analytics-export", uuid.New(), func(context.Context) error { called = true; return nil })
	require.ErrorContains(t, err, "redis down")
	require.False(t, called)
}

func TestRunValidatesInput(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	noop := func(context.Context) error { return nil }

	_, err = manager.Run(context.Background(), "", uuid.New(), noop)
	require.ErrorIs(t, err, errNoConsumer)
	_, err = manager.Run(context.Background(), "analytics-export", uuid.Nil, noop)
	require.ErrorIs(t, err, errNoEventID)

	_, err = NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second)
	require.Error(t, err)
}
