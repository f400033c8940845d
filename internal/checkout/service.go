// Package checkout prices carts and turns them into orders. Prices, fees and
// totals are always recomputed from the database; client amounts are only
// compared against the result.
package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/pkg/cache"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	pkgcheckout "github.com/angelmondragon/cookerz-backend/pkg/checkout"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
	"github.com/angelmondragon/cookerz-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pricingSource interface {
	Pricing(ctx context.Context) (pricing.Settings, error)
}

// Service exposes quoting and order placement.
type Service interface {
	Quote(ctx context.Context, lines []pkgcheckout.LineInput) (*QuoteResult, error)
	PlaceOrder(ctx context.Context, customerID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error)
}

type ServiceParams struct {
	Tx       txRunner
	Menu     menu.Repository
	Orders   orders.Repository
	Settings pricingSource
	Outbox   outbox.Emitter
	Cache    cache.Invalidator
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	menu     menu.Repository
	orders   orders.Repository
	settings pricingSource
	outbox   outbox.Emitter
	cache    cache.Invalidator
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, errors.New("tx runner required")
	case params.Menu == nil:
		return nil, errors.New("menu repository required")
	case params.Orders == nil:
		return nil, errors.New("orders repository required")
	case params.Settings == nil:
		return nil, errors.New("settings source required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &service{
		tx:       params.Tx,
		menu:     params.Menu,
		orders:   params.Orders,
		settings: params.Settings,
		outbox:   params.Outbox,
		cache:    params.Cache,
		logg:     params.Logger,
	}, nil
}

// Quote prices the cart without persisting anything. Stock is checked so the
// client learns about shortages before placing the order.
func (s *service) Quote(ctx context.Context, lines []pkgcheckout.LineInput) (*QuoteResult, error) {
	normalized, err := pkgcheckout.NormalizeLines(lines)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Pricing(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.menu.FindByIDs(ctx, pkgcheckout.MenuItemIDs(normalized), false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu items")
	}
	snapshots := snapshotsOf(items)
	cookerID, err := pkgcheckout.ValidateLines(normalized, snapshots)
	if err != nil {
		return nil, err
	}
	result := buildQuote(cookerID, normalized, snapshots, settings)
	return &result, nil
}

func (s *service) PlaceOrder(ctx context.Context, customerID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	lines, err := pkgcheckout.NormalizeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	settings, err := s.settings.Pricing(ctx)
	if err != nil {
		return nil, err
	}

	var created orders.OrderDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		menuRepo := s.menu.WithTx(tx)
		items, err := menuRepo.FindByIDs(ctx, pkgcheckout.MenuItemIDs(lines), true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu items")
		}
		snapshots := snapshotsOf(items)
		cookerID, err := pkgcheckout.ValidateLines(lines, snapshots)
		if err != nil {
			return err
		}

		quote := buildQuote(cookerID, lines, snapshots, settings)
		if input.Submitted.mismatch(quote.Pricing) {
			return pkgerrors.New(pkgerrors.CodeConflict, "order totals changed, review the updated quote").
				WithDetails(map[string]any{
					"expected": expectedTotals{
						Subtotal:    quote.Pricing.Subtotal,
						DeliveryFee: quote.Pricing.DeliveryFee,
						Total:       quote.Pricing.Total,
					},
					"submitted": input.Submitted,
				})
		}

		order := newOrder(customerID, cookerID, lines, snapshots, quote.Pricing, input)
		if err := s.decrementStock(ctx, tx, menuRepo, customerID, lines, items); err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		created = orders.FromModel(*order)
		return s.outbox.Emit(ctx, tx, outbox.Change{
			Table: enums.TableOrders,
			Op:    enums.ChangeOpInsert,
			RowID: order.ID,
			New:   created,
			Actor: &changefeed.Actor{UserID: customerID, Role: string(enums.UserRoleCustomer)},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.TagMenu(created.CookerID.String())); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.cache_invalidate_failed")
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  created.ID.String(),
		"cooker_id": created.CookerID.String(),
		"total":     created.Total.String(),
	}), "checkout.order_placed")
	return &created, nil
}

func (s *service) decrementStock(ctx context.Context, tx *gorm.DB, repo menu.Repository, actorID uuid.UUID, lines []pkgcheckout.LineInput, items []models.MenuItem) error {
	byID := make(map[uuid.UUID]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for _, line := range lines {
		err := repo.DecrementStock(ctx, line.MenuItemID, line.Quantity)
		if errors.Is(err, menu.ErrInsufficientStock) {
			item := byID[line.MenuItemID]
			return pkgerrors.New(pkgerrors.CodeStateConflict, "some items cannot be fulfilled").
				WithDetails(map[string]any{"violations": []pkgcheckout.LineViolation{{
					MenuItemID:   line.MenuItemID,
					Title:        item.Title,
					Reason:       pkgcheckout.ReasonInsufficientStock,
					RequestedQty: line.Quantity,
					AvailableQty: item.Stock,
				}}})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}

		before := byID[line.MenuItemID]
		after := before
		after.Stock -= line.Quantity
		if err := s.outbox.Emit(ctx, tx, outbox.Change{
			Table: enums.TableMenuItems,
			Op:    enums.ChangeOpUpdate,
			RowID: line.MenuItemID,
			Old:   menu.FromModel(before),
			New:   menu.FromModel(after),
			Actor: &changefeed.Actor{UserID: actorID, Role: string(enums.UserRoleCustomer)},
		}); err != nil {
			return err
		}
	}
	return nil
}

func snapshotsOf(items []models.MenuItem) map[uuid.UUID]pkgcheckout.ItemSnapshot {
	out := make(map[uuid.UUID]pkgcheckout.ItemSnapshot, len(items))
	for _, item := range items {
		out[item.ID] = pkgcheckout.ItemSnapshot{
			ID:          item.ID,
			CookerID:    item.CookerID,
			Title:       item.Title,
			Price:       item.Price,
			Profit:      item.Profit,
			Stock:       item.Stock,
			IsAvailable: item.IsAvailable,
		}
	}
	return out
}

func buildQuote(cookerID uuid.UUID, lines []pkgcheckout.LineInput, items map[uuid.UUID]pkgcheckout.ItemSnapshot, settings pricing.Settings) QuoteResult {
	priced := make([]pricing.Line, 0, len(lines))
	out := make([]QuoteLine, 0, len(lines))
	for _, line := range lines {
		item := items[line.MenuItemID]
		priced = append(priced, pricing.Line{UnitPrice: item.Price, Quantity: line.Quantity})
		out = append(out, QuoteLine{
			MenuItemID: item.ID.String(),
			Title:      item.Title,
			UnitPrice:  item.Price,
			Quantity:   line.Quantity,
			LineTotal:  item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		})
	}
	return QuoteResult{
		CookerID: cookerID.String(),
		Lines:    out,
		Pricing:  pricing.Compute(priced, decimal.Zero, settings),
	}
}

func newOrder(customerID, cookerID uuid.UUID, lines []pkgcheckout.LineInput, items map[uuid.UUID]pkgcheckout.ItemSnapshot, quote pricing.Quote, input PlaceOrderInput) *models.Order {
	order := &models.Order{
		ID:                 uuid.New(),
		CookerID:           cookerID,
		CustomerID:         customerID,
		Status:             enums.OrderStatusCreated,
		Subtotal:           quote.Subtotal,
		DeliveryFee:        quote.DeliveryFee,
		Discount:           quote.Discount,
		Total:              quote.Total,
		PlatformCommission: quote.PlatformCommission,
		CookerPayout:       quote.CookerPayout,
		PaymentMethod:      input.PaymentMethod,
		PaymentStatus:      enums.PaymentStatusPending,
		Notes:              input.Notes,
		Address:            input.Address,
	}
	for _, line := range lines {
		item := items[line.MenuItemID]
		order.Items = append(order.Items, models.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			MenuItemID: item.ID,
			Title:      item.Title,
			UnitPrice:  item.Price,
			Quantity:   line.Quantity,
		})
	}
	return order
}
