// Package orders implements the order lifecycle: role scoped listing, detail
// reads, status transitions, delivery claims and stale order expiry.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/pkg/cache"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
	"github.com/angelmondragon/cookerz-backend/pkg/pagination"
	"github.com/angelmondragon/cookerz-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order reads and lifecycle mutations.
type Service interface {
	List(ctx context.Context, actor Actor, filter ListFilter) (*types.Page[OrderDTO], error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	Transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error)
	Claim(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	CancelStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type ServiceParams struct {
	Repo   Repository
	Menu   menu.Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Cache  cache.Invalidator
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo   Repository
	menu   menu.Repository
	tx     txRunner
	outbox outbox.Emitter
	cache  cache.Invalidator
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("orders repository required")
	case params.Menu == nil:
		return nil, errors.New("menu repository required")
	case params.Tx == nil:
		return nil, errors.New("tx runner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		menu:   params.Menu,
		tx:     params.Tx,
		outbox: params.Outbox,
		cache:  params.Cache,
		logg:   params.Logger,
		now:    now,
	}, nil
}

func requireActor(actor Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.NotAuthenticated()
	}
	return nil
}

func (s *service) List(ctx context.Context, actor Actor, filter ListFilter) (*types.Page[OrderDTO], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"field": "status", "value": string(*filter.Status)})
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && !filter.CreatedTo.After(*filter.CreatedFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_at range is empty")
	}

	query := listQuery{Actor: actor, Filter: filter, Limit: pagination.LimitWithBuffer(filter.Limit)}
	if filter.Cursor != "" {
		cursor, err := pagination.ParseCursor(filter.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page, next := pagination.Trim(rows, filter.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	items := make([]OrderDTO, 0, len(page))
	for _, row := range page {
		items = append(items, FromModel(row))
	}
	return &types.Page[OrderDTO]{Items: items, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID, false)
	if err != nil {
		return nil, mapFindError(err)
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	items, err := s.repo.ItemsWithProfit(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	showProfit := actor.Role == enums.UserRoleCooker || actor.Role == enums.UserRoleAdmin

	dto := FromModel(*order)
	dto.Items = make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		line := OrderItemDTO{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Title:      item.Title,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
		if showProfit {
			profit := item.UnitProfit
			line.UnitProfit = &profit
		}
		dto.Items = append(dto.Items, line)
	}
	return &dto, nil
}

func (s *service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status").
			WithDetails(map[string]any{"field": "status", "value": string(target)})
	}

	var (
		updated OrderDTO
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID, true)
		if err != nil {
			return mapFindError(err)
		}
		from = order.Status
		if !canView(actor, order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, target)).
				WithDetails(map[string]any{"from": string(order.Status), "to": string(target)})
		}
		if err := authorizeTransition(actor, order, target); err != nil {
			return err
		}

		before := FromModel(*order)
		s.apply(order, target)
		if actor.Role == enums.UserRoleDelivery && order.DeliveryPartnerID == nil {
			partner := actor.UserID
			order.DeliveryPartnerID = &partner
		}
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if target == enums.OrderStatusCancelled {
			if err := s.restock(ctx, tx, order.ID, &actor); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock order items")
			}
		}
		updated = FromModel(*order)
		return s.emit(ctx, tx, before, updated, &actor)
	})
	if err != nil {
		return nil, err
	}
	if target == enums.OrderStatusCancelled {
		s.invalidateMenu(ctx, updated.CookerID)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"from":     string(from),
		"to":       string(target),
	}), "order.transitioned")
	return &updated, nil
}

// Claim assigns a ready, unassigned order to the calling delivery partner.
// Claiming an order already assigned to the caller is a no-op.
func (s *service) Claim(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleDelivery {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only delivery partners can claim orders")
	}

	var updated OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID, true)
		if err != nil {
			return mapFindError(err)
		}
		if order.DeliveryPartnerID != nil {
			if *order.DeliveryPartnerID == actor.UserID {
				updated = FromModel(*order)
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed")
		}
		if order.Status != enums.OrderStatusReadyForPickup {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only orders ready for pickup can be claimed").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		before := FromModel(*order)
		partner := actor.UserID
		order.DeliveryPartnerID = &partner
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		updated = FromModel(*order)
		return s.emit(ctx, tx, before, updated, &actor)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// CancelStale cancels up to limit orders still in created before cutoff. Each
// order is cancelled in its own transaction; failures are combined.
func (s *service) CancelStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	stale, err := s.repo.ListStaleCreated(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	var (
		cancelled int
		errs      error
	)
	for _, candidate := range stale {
		orderID := candidate.ID
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := repo.FindByID(ctx, orderID, true)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusCreated {
				return errSkip
			}
			before := FromModel(*order)
			s.apply(order, enums.OrderStatusCancelled)
			if err := repo.Save(ctx, order); err != nil {
				return err
			}
			if err := s.restock(ctx, tx, order.ID, nil); err != nil {
				return err
			}
			return s.emit(ctx, tx, before, FromModel(*order), nil)
		})
		switch {
		case errors.Is(err, errSkip):
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", orderID, err))
		default:
			cancelled++
			s.invalidateMenu(ctx, candidate.CookerID)
		}
	}
	return cancelled, errs
}

var errSkip = errors.New("order no longer stale")

func (s *service) apply(order *models.Order, target enums.OrderStatus) {
	now := s.now().UTC()
	order.Status = target
	order.UpdatedAt = now
	switch target {
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
		if order.PaymentMethod == enums.PaymentMethodCash {
			order.PaymentStatus = enums.PaymentStatusPaid
		}
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}
}

// restock gives the quantities of a cancelled order back to its menu items.
// Items deleted since checkout are skipped.
func (s *service) restock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *Actor) error {
	lines, err := s.repo.WithTx(tx).Items(ctx, orderID)
	if err != nil {
		return err
	}
	qty := make(map[uuid.UUID]int, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, seen := qty[line.MenuItemID]; !seen {
			ids = append(ids, line.MenuItemID)
		}
		qty[line.MenuItemID] += line.Quantity
	}

	menuRepo := s.menu.WithTx(tx)
	items, err := menuRepo.FindByIDs(ctx, ids, true)
	if err != nil {
		return err
	}
	for _, before := range items {
		if err := menuRepo.IncrementStock(ctx, before.ID, qty[before.ID]); err != nil {
			return err
		}
		after := before
		after.Stock += qty[before.ID]
		change := outbox.Change{
			Table: enums.TableMenuItems,
			Op:    enums.ChangeOpUpdate,
			RowID: before.ID,
			Old:   menu.FromModel(before),
			New:   menu.FromModel(after),
		}
		if actor != nil {
			change.Actor = &changefeed.Actor{UserID: actor.UserID, Role: string(actor.Role)}
		}
		if err := s.outbox.Emit(ctx, tx, change); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) invalidateMenu(ctx context.Context, cookerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.TagMenu(cookerID.String())); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders.cache_invalidate_failed")
	}
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, before, after OrderDTO, actor *Actor) error {
	change := outbox.Change{
		Table: enums.TableOrders,
		Op:    enums.ChangeOpUpdate,
		RowID: after.ID,
		Old:   before,
		New:   after,
	}
	if actor != nil {
		change.Actor = &changefeed.Actor{UserID: actor.UserID, Role: string(actor.Role)}
	}
	return s.outbox.Emit(ctx, tx, change)
}

func canView(actor Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleCustomer:
		return order.CustomerID == actor.UserID
	case enums.UserRoleCooker:
		return order.CookerID == actor.UserID
	case enums.UserRoleDelivery:
		if order.DeliveryPartnerID != nil {
			return *order.DeliveryPartnerID == actor.UserID
		}
		return order.Status == enums.OrderStatusReadyForPickup
	}
	return false
}

// authorizeTransition applies the per-role rules on top of the lifecycle graph.
func authorizeTransition(actor Actor, order *models.Order, target enums.OrderStatus) error {
	forbidden := func() error {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s cannot move order to %s", actor.Role, target))
	}
	switch actor.Role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleCooker:
		switch target {
		case enums.OrderStatusConfirmed, enums.OrderStatusPreparing, enums.OrderStatusReadyForPickup:
			return nil
		case enums.OrderStatusCancelled:
			if order.Status == enums.OrderStatusOutForDelivery {
				return forbidden()
			}
			return nil
		}
	case enums.UserRoleDelivery:
		switch target {
		case enums.OrderStatusOutForDelivery:
			return nil
		case enums.OrderStatusDelivered:
			if order.DeliveryPartnerID != nil && *order.DeliveryPartnerID == actor.UserID {
				return nil
			}
		}
	case enums.UserRoleCustomer:
		if target == enums.OrderStatusCancelled && order.Status == enums.OrderStatusCreated {
			return nil
		}
	}
	return forbidden()
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
