package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/internal/livequery"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/pagination"
)

// LiveOrders keeps each cooker's recent order list current from the change
// feed so it can be streamed to the kitchen dashboard.
type LiveOrders struct {
	registry *livequery.Registry[OrderDTO]
	svc      Service
}

func NewLiveOrders(registry *livequery.Registry[OrderDTO], svc Service) (*LiveOrders, error) {
	if registry == nil {
		return nil, errors.New("live query registry is required")
	}
	if svc == nil {
		return nil, errors.New("orders service is required")
	}
	return &LiveOrders{registry: registry, svc: svc}, nil
}

func CookerListKey(cookerID uuid.UUID) string {
	return "orders:cooker:" + cookerID.String()
}

func (l *LiveOrders) cookerQuery(cookerID uuid.UUID) livequery.Query[OrderDTO] {
	actor := Actor{UserID: cookerID, Role: enums.UserRoleCooker}
	return livequery.Query[OrderDTO]{
		Key: CookerListKey(cookerID),
		Filter: changefeed.Filter{
			Table:  enums.TableOrders,
			Column: "cooker_id",
			Value:  cookerID.String(),
		},
		Load: func(ctx context.Context) ([]OrderDTO, error) {
			page, err := l.svc.List(ctx, actor, ListFilter{Limit: pagination.MaxLimit})
			if err != nil {
				return nil, err
			}
			return page.Items, nil
		},
		ID: func(o OrderDTO) uuid.UUID { return o.ID },
		Less: func(a, b OrderDTO) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID.String() > b.ID.String()
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
		Limit: pagination.MaxLimit,
	}
}

// Watch attaches to the cooker's live list. The caller must Release the handle.
func (l *LiveOrders) Watch(ctx context.Context, cookerID uuid.UUID) (*livequery.Handle[OrderDTO], error) {
	return l.registry.Acquire(ctx, l.cookerQuery(cookerID))
}

// Transition changes an order's status. For cookers the live list shows the
// new status immediately and reverts if the transition is rejected.
func (l *LiveOrders) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	if actor.Role != enums.UserRoleCooker {
		return l.svc.Transition(ctx, actor, orderID, target)
	}

	var result *OrderDTO
	patch := func(items []OrderDTO) []OrderDTO {
		for i := range items {
			if items[i].ID == orderID {
				items[i].Status = target
			}
		}
		return items
	}
	err := l.registry.Optimistic(ctx, CookerListKey(actor.UserID), patch, func(ctx context.Context) error {
		out, err := l.svc.Transition(ctx, actor, orderID, target)
		result = out
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
