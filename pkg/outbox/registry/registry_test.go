package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

func newTestRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{ChangesTopic: "changes"})
	require.NoError(t, err)
	return reg
}

func outboxRow(t *testing.T, mutate func(*changefeed.Event)) models.OutboxEvent {
	t.Helper()
	event := changefeed.Event{
		ID:         uuid.New(),
		Table:      enums.TableOrders,
		Op:         enums.ChangeOpUpdate,
		RowID:      uuid.New(),
		New:        json.RawMessage(`{"status":"confirmed"}`),
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	row := models.OutboxEvent{ID: event.ID, Source: event.Table, Op: event.Op, RowID: event.RowID}
	if mutate != nil {
		mutate(&event)
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	row.Payload = payload
	return row
}

func TestResolve(t *testing.T) {
	reg := newTestRegistry(t)
	row := outboxRow(t, nil)

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	assert.Equal(t, "changes", resolved.Descriptor.Topic)
	assert.Equal(t, row.ID, resolved.Event.ID)

	attrs := resolved.Attributes()
	assert.Equal(t, row.ID.String(), attrs["event_id"])
	assert.Equal(t, "orders", attrs["table"])
	assert.Equal(t, "update", attrs["op"])
	assert.Equal(t, row.RowID.String(), attrs["row_id"])
	assert.Equal(t, "2025-03-01T12:00:00Z", attrs["occurred_at"])
}

func TestResolveRejectsBrokenRows(t *testing.T) {
	reg := newTestRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown table": func() models.OutboxEvent {
			row := outboxRow(t, nil)
			row.Source = "carts"
			return row
		}(),
		"bad payload": func() models.OutboxEvent {
			row := outboxRow(t, nil)
			row.Payload = json.RawMessage(`{`)
			return row
		}(),
		"id mismatch": outboxRow(t, func(e *changefeed.Event) { e.ID = uuid.New() }),
		"op mismatch": outboxRow(t, func(e *changefeed.Event) { e.Op = enums.ChangeOpInsert }),
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsNonRetryable(err))
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := NewNonRetryableError(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}
