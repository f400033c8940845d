// Package changefeed defines the row-level change events that flow from the
// outbox to Pub/Sub and into realtime subscribers.
package changefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// Actor identifies who performed the mutation.
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// Event is a single row change. Old is empty for inserts, New is empty for deletes.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Table      enums.FeedTable `json:"table"`
	Op         enums.ChangeOp  `json:"op"`
	RowID      uuid.UUID       `json:"row_id"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *Actor          `json:"actor,omitempty"`
}

// Image returns the row image a subscriber should look at: the new image for
// inserts and updates, the old image for deletes.
func (e Event) Image() json.RawMessage {
	if e.Op == enums.ChangeOpDelete {
		return e.Old
	}
	return e.New
}

// Validate checks the envelope fields every consumer relies on.
func (e Event) Validate() error {
	if e.ID == uuid.Nil {
		return errors.New("event id is required")
	}
	if !e.Table.IsValid() {
		return fmt.Errorf("unknown table %q", e.Table)
	}
	if !e.Op.IsValid() {
		return fmt.Errorf("unknown op %q", e.Op)
	}
	if e.RowID == uuid.Nil {
		return errors.New("row id is required")
	}
	if len(e.Image()) == 0 {
		return fmt.Errorf("%s event carries no row image", e.Op)
	}
	return nil
}

// Decode parses and validates a serialized event.
func Decode(payload []byte) (Event, error) {
	var event Event
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&event); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	return event, nil
}

// DecodeImage unmarshals the relevant row image into dst.
func (e Event) DecodeImage(dst any) error {
	image := e.Image()
	if len(image) == 0 {
		return errors.New("event carries no row image")
	}
	return json.Unmarshal(image, dst)
}
