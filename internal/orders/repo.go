package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/pagination"
)

// Repository persists orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error)
	ItemsWithProfit(ctx context.Context, orderID uuid.UUID) ([]ItemWithProfit, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	List(ctx context.Context, query listQuery) ([]models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	ListStaleCreated(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type listQuery struct {
	Actor  Actor
	Filter ListFilter
	Cursor *pagination.Cursor
	Limit  int
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order with its items in one statement batch.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if lock && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ItemsWithProfit(ctx context.Context, orderID uuid.UUID) ([]ItemWithProfit, error) {
	var rows []ItemWithProfit
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.*, COALESCE(mi.profit, 0) AS unit_profit").
		Joins("LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id").
		Where("oi.order_id = ?", orderID).
		Order("oi.created_at ASC, oi.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Items(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var rows []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns orders visible to the actor, newest first.
func (r *repository) List(ctx context.Context, q listQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})

	switch q.Actor.Role {
	case enums.UserRoleCustomer:
		query = query.Where("customer_id = ?", q.Actor.UserID)
	case enums.UserRoleCooker:
		query = query.Where("cooker_id = ?", q.Actor.UserID)
	case enums.UserRoleDelivery:
		query = query.Where(
			"(delivery_partner_id = ? OR (delivery_partner_id IS NULL AND status = ?))",
			q.Actor.UserID, enums.OrderStatusReadyForPickup,
		)
	}

	if q.Filter.Status != nil {
		query = query.Where("status = ?", *q.Filter.Status)
	}
	if q.Filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", q.Filter.CreatedFrom.UTC())
	}
	if q.Filter.CreatedTo != nil {
		query = query.Where("created_at < ?", q.Filter.CreatedTo.UTC())
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			q.Cursor.CreatedAt.UTC(), q.Cursor.CreatedAt.UTC(), q.Cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// ListStaleCreated returns orders still in created whose creation predates cutoff.
func (r *repository) ListStaleCreated(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusCreated, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
