package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

// Change describes a row mutation. Old is nil for inserts and New is nil for deletes.
type Change struct {
	Table enums.FeedTable
	Op    enums.ChangeOp
	RowID uuid.UUID
	Old   any
	New   any
	Actor *changefeed.Actor
}

// Emitter is the write side used by domain services inside their transactions.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, change Change) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit stores the change in the outbox using the caller's transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, change Change) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event, err := s.buildEvent(change)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := models.OutboxEvent{
		ID:      event.ID,
		Source:  event.Table,
		Op:      event.Op,
		RowID:   event.RowID,
		Payload: json.RawMessage(payload),
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id": event.ID.String(),
			"table":    event.Table,
			"op":       event.Op,
			"row_id":   event.RowID.String(),
		})
		s.logg.Debug(logCtx, "outbox event queued")
	}
	return nil
}

func (s *Service) buildEvent(change Change) (changefeed.Event, error) {
	event := changefeed.Event{
		ID:         uuid.New(),
		Table:      change.Table,
		Op:         change.Op,
		RowID:      change.RowID,
		OccurredAt: s.now().UTC(),
		Actor:      change.Actor,
	}
	var err error
	if change.Old != nil {
		if event.Old, err = json.Marshal(change.Old); err != nil {
			return changefeed.Event{}, fmt.Errorf("encode old image: %w", err)
		}
	}
	if change.New != nil {
		if event.New, err = json.Marshal(change.New); err != nil {
			return changefeed.Event{}, fmt.Errorf("encode new image: %w", err)
		}
	}
	if err := event.Validate(); err != nil {
		return changefeed.Event{}, fmt.Errorf("invalid change: %w", err)
	}
	return event, nil
}
