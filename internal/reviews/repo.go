package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
)

// RatingStats aggregates a cooker's reviews.
type RatingStats struct {
	Average decimal.Decimal
	Count   int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	Create(ctx context.Context, review *models.Review) error
	ListByCooker(ctx context.Context, cookerID uuid.UUID, limit int) ([]models.Review, error)
	Stats(ctx context.Context, cookerID uuid.UUID) (RatingStats, error)
	FindCooker(ctx context.Context, cookerID uuid.UUID) (*models.Cooker, error)
	SaveCookerRating(ctx context.Context, cookerID uuid.UUID, stats RatingStats) error
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

func (r *repository) locked(query *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.locked(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) ListByCooker(ctx context.Context, cookerID uuid.UUID, limit int) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("cooker_id = ?", cookerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Stats(ctx context.Context, cookerID uuid.UUID) (RatingStats, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
		Where("cooker_id = ?", cookerID).
		Scan(&row).Error
	if err != nil {
		return RatingStats{}, err
	}
	stats := RatingStats{Average: decimal.Zero, Count: int(row.Count)}
	if row.Count > 0 {
		stats.Average = decimal.NewFromInt(row.Total).Div(decimal.NewFromInt(row.Count)).Round(2)
	}
	return stats, nil
}

func (r *repository) FindCooker(ctx context.Context, cookerID uuid.UUID) (*models.Cooker, error) {
	var cooker models.Cooker
	if err := r.locked(r.db.WithContext(ctx)).Where("id = ?", cookerID).First(&cooker).Error; err != nil {
		return nil, err
	}
	return &cooker, nil
}

func (r *repository) SaveCookerRating(ctx context.Context, cookerID uuid.UUID, stats RatingStats) error {
	return r.db.WithContext(ctx).
		Model(&models.Cooker{}).
		Where("id = ?", cookerID).
		Updates(map[string]any{
			"rating_average": stats.Average,
			"rating_count":   stats.Count,
		}).Error
}
