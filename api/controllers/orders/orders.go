// Package orders exposes order listing, detail, status changes and the
// cooker's live order stream.
package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	"github.com/angelmondragon/cookerz-backend/internal/livequery"
	internalorders "github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/pagination"
)

// Transitioner applies status changes; LiveOrders satisfies it.
type Transitioner interface {
	Transition(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, target enums.OrderStatus) (*internalorders.OrderDTO, error)
}

// Watcher opens the cooker's live order list.
type Watcher interface {
	Watch(ctx context.Context, cookerID uuid.UUID) (*livequery.Handle[internalorders.OrderDTO], error)
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	id, role, ok := middleware.Actor(r.Context())
	if !ok {
		return internalorders.Actor{}, pkgerrors.NotAuthenticated()
	}
	return internalorders.Actor{UserID: id, Role: role}, nil
}

// List returns the caller's orders: customers see their own, cookers their
// kitchen's, delivery partners assigned and claimable ones, admins all.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseListFilter(r *http.Request) (internalorders.ListFilter, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalorders.ListFilter{}, err
	}
	filter := internalorders.ListFilter{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return internalorders.ListFilter{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		filter.Status = &status
	}

	if filter.CreatedFrom, err = validators.ParseQueryTime(r, "created_gte"); err != nil {
		return internalorders.ListFilter{}, err
	}
	if filter.CreatedTo, err = validators.ParseQueryTime(r, "created_lt"); err != nil {
		return internalorders.ListFilter{}, err
	}
	return filter, nil
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type transitionRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,enum"`
}

func Transition(svc Transitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
				WithDetails(map[string]any{"field": "status", "value": string(body.Status)}))
			return
		}

		order, err := svc.Transition(r.Context(), actor, orderID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Claim(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Claim(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
