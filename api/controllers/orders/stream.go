package orders

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	internalorders "github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const (
	streamEventName   = "orders"
	heartbeatInterval = 25 * time.Second
)

// Stream sends the cooker's order list as Server-Sent Events: one "orders"
// event with the full list on connect and after every change, plus comment
// heartbeats to keep proxies from closing the connection.
func Stream(live Watcher, logg *logger.Logger) http.HandlerFunc {
	return stream(live, logg, heartbeatInterval)
}

func stream(live Watcher, logg *logger.Logger, heartbeat time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.UserRoleCooker {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only cookers can stream orders"))
			return
		}

		handle, err := live.Watch(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer handle.Release()

		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		if logg != nil {
			logg.Info(ctx, "orders.stream_opened")
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				if logg != nil {
					logg.Info(ctx, "orders.stream_closed")
				}
				return
			case items, ok := <-handle.Updates:
				if !ok {
					return
				}
				if err := writeOrdersEvent(w, items); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeOrdersEvent(w io.Writer, items []internalorders.OrderDTO) error {
	if items == nil {
		items = []internalorders.OrderDTO{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", streamEventName, payload)
	return err
}
