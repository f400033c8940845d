// Package registry resolves outbox rows into publishable change events.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// TableDescriptor routes a feed table to its Pub/Sub topic.
type TableDescriptor struct {
	Table enums.FeedTable
	Topic string
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor TableDescriptor
	Event      changefeed.Event
}

// Attributes are the Pub/Sub message attributes consumers filter on.
func (r ResolvedEvent) Attributes() map[string]string {
	return map[string]string{
		"event_id":    r.Event.ID.String(),
		"table":       string(r.Event.Table),
		"op":          string(r.Event.Op),
		"row_id":      r.Event.RowID.String(),
		"occurred_at": r.Event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// EventRegistry maps each feed table to its descriptor.
type EventRegistry struct {
	entries map[enums.FeedTable]TableDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err so callers can detect it with errors.As.
func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

// NewEventRegistry routes every feed table to the configured changes topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.ChangesTopic)
	if topic == "" {
		return nil, fmt.Errorf("changes topic is required")
	}
	reg := &EventRegistry{entries: make(map[enums.FeedTable]TableDescriptor)}
	for _, table := range []enums.FeedTable{
		enums.TableOrders,
		enums.TableMenuItems,
		enums.TablePlatformSettings,
		enums.TableReviews,
		enums.TableCookers,
	} {
		reg.entries[table] = TableDescriptor{Table: table, Topic: topic}
	}
	return reg, nil
}

// Resolve validates the row and decodes its change event.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.Source]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported table %s", row.Source))
	}
	if row.RowID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing row_id"))
	}
	event, err := changefeed.Decode(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if event.ID != row.ID {
		return nil, NewNonRetryableError(fmt.Errorf("event id mismatch: row %s payload %s", row.ID, event.ID))
	}
	if event.Table != row.Source || event.Op != row.Op || event.RowID != row.RowID {
		return nil, NewNonRetryableError(fmt.Errorf("payload does not match outbox row %s", row.ID))
	}
	return &ResolvedEvent{Descriptor: desc, Event: event}, nil
}
