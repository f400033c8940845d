package realtime

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type dispatcher interface {
	Dispatch(event changefeed.Event)
}

// Receiver pulls change events from the realtime subscription into the hub.
// Every message is acked: the hub keeps no durable state, so redelivery
// would only duplicate events for live subscribers.
type Receiver struct {
	subscription receiver
	hub          dispatcher
	logg         *logger.Logger
}

type ReceiverParams struct {
	Subscription *gcppubsub.Subscriber
	Hub          *Hub
	Logger       *logger.Logger
}

func NewReceiver(params ReceiverParams) (*Receiver, error) {
	if params.Subscription == nil {
		return nil, errors.New("realtime subscription is required")
	}
	if params.Hub == nil {
		return nil, errors.New("realtime hub is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Receiver{
		subscription: params.Subscription,
		hub:          params.Hub,
		logg:         params.Logger,
	}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (r *Receiver) Run(ctx context.Context) error {
	r.logg.Info(ctx, "realtime.receiver_started")
	err := r.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		r.handle(innerCtx, msg)
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	r.logg.Info(ctx, "realtime.receiver_stopped")
	return nil
}

func (r *Receiver) handle(ctx context.Context, msg *gcppubsub.Message) {
	event, err := changefeed.Decode(msg.Data)
	if err != nil {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"error":      err.Error(),
		}), "realtime.invalid_event")
		return
	}
	r.hub.Dispatch(event)
}
