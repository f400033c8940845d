package export

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const consumerName = "analytics-export"

// Handler processes one decoded change event.
type Handler interface {
	Handle(ctx context.Context, event changefeed.Event) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyRunner interface {
	Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

// Worker consumes change events from Pub/Sub and exports delivered orders,
// processing each event id at most once per idempotency TTL.
type Worker struct {
	subscription receiver
	handler      Handler
	manager      idempotencyRunner
	flusher      interface{ Flush(context.Context) error }
	logg         *logger.Logger
}

type WorkerParams struct {
	Subscription *gcppubsub.Subscriber
	Handler      Handler
	Manager      idempotencyRunner
	Writer       FactWriter
	Logger       *logger.Logger
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	if params.Handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	if params.Manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	w := &Worker{
		subscription: params.Subscription,
		handler:      params.Handler,
		manager:      params.Manager,
		logg:         params.Logger,
	}
	if params.Writer != nil {
		w.flusher = params.Writer
	}
	return w, nil
}

type processResult struct {
	nack bool
}

// Run receives messages until ctx is cancelled, then flushes buffered rows.
func (w *Worker) Run(ctx context.Context) error {
	err := w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if w.flusher != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if flushErr := w.flusher.Flush(flushCtx); flushErr != nil {
			w.logg.Error(flushCtx, "analytics.flush_failed", flushErr)
		}
	}
	return err
}

func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := w.logg.WithField(ctx, "message_id", msg.ID)

	event, err := changefeed.Decode(msg.Data)
	if err != nil {
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "analytics.invalid_event")
		return processResult{}
	}
	logCtx = w.logg.WithFields(logCtx, map[string]any{
		"event_id": event.ID.String(),
		"table":    string(event.Table),
		"op":       string(event.Op),
		"row_id":   event.RowID.String(),
	})

	if event.Table != enums.TableOrders {
		return processResult{}
	}

	skipped, err := w.manager.Run(logCtx, consumerName, event.ID, func(runCtx context.Context) error {
		return w.handler.Handle(runCtx, event)
	})
	switch {
	case errors.Is(err, ErrMalformedImage):
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "analytics.malformed_image")
		return processResult{}
	case err != nil:
		w.logg.Error(logCtx, "analytics.handle_failed", err)
		return processResult{nack: true}
	case skipped:
		w.logg.Info(logCtx, "analytics.already_processed")
		return processResult{}
	}

	w.logg.Debug(logCtx, "analytics.event_handled")
	return processResult{}
}
