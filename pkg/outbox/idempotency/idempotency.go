// Package idempotency makes event consumers effectively-once. Pub/Sub
// delivers at least once, so each consumer marks the event ids it has
// handled and skips redeliveries.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the Redis surface for processed marks.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errNoConsumer = errors.New("consumer name is required")
	errNoEventID  = errors.New("event id is required")
)

// Manager keeps one mark per consumer and event for ttl. Marks live under
// the idempotency namespace with scope "evt:processed:<consumer>".
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("idempotency ttl must not be negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Run calls fn unless consumer already handled eventID, in which case it
// reports skipped. The mark is placed before fn runs and removed again when
// fn fails, so a redelivery retries the work.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	if !claimed {
		return true, nil
	}

	if err := fn(ctx); err != nil {
		if delErr := m.store.Del(context.WithoutCancel(ctx), key); delErr != nil {
			return false, errors.Join(err, fmt.Errorf("clear mark for event %s: %w", eventID, delErr))
		}
		return false, err
	}
	return false, nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errNoConsumer
	case eventID == uuid.Nil:
		return "", errNoEventID
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
