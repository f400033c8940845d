package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository loads a cooker's orders with their items joined to unit profit.
type Repository interface {
	ListCookerOrders(ctx context.Context, cookerID uuid.UUID, window Window) ([]OrderRecord, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type orderRow struct {
	ID        uuid.UUID
	CookerID  uuid.UUID
	CreatedAt *time.Time
}

type itemRow struct {
	OrderID    uuid.UUID
	Quantity   int
	UnitProfit decimal.Decimal
}

func (r *repository) ListCookerOrders(ctx context.Context, cookerID uuid.UUID, window Window) ([]OrderRecord, error) {
	var orders []orderRow
	if err := r.db.WithContext(ctx).
		Table("orders").
		Select("id", "cooker_id", "created_at").
		Where("cooker_id = ?", cookerID).
		Where("created_at >= ? AND created_at < ?", window.Start.UTC(), window.End.UTC()).
		Order("created_at ASC").
		Scan(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []OrderRecord{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	var items []itemRow
	if err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.order_id", "oi.quantity", "mi.profit AS unit_profit").
		Joins("JOIN menu_items mi ON mi.id = oi.menu_item_id").
		Where("oi.order_id IN ?", ids).
		Scan(&items).Error; err != nil {
		return nil, err
	}

	byOrder := make(map[uuid.UUID][]ItemRecord, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], ItemRecord{
			OrderID:    item.OrderID,
			Quantity:   item.Quantity,
			UnitProfit: item.UnitProfit,
		})
	}

	records := make([]OrderRecord, len(orders))
	for i, o := range orders {
		records[i] = OrderRecord{ID: o.ID, CookerID: o.CookerID, CreatedAt: o.CreatedAt, Items: byOrder[o.ID]}
	}
	return records, nil
}
