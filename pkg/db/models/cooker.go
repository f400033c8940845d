package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cooker is the seller profile of a user with the cooker role. It shares the user's id.
type Cooker struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	KitchenName   string          `gorm:"column:kitchen_name;not null"`
	Bio           *string         `gorm:"column:bio"`
	IsOpen        bool            `gorm:"column:is_open;not null"`
	Address       *string         `gorm:"column:address"`
	RatingAverage decimal.Decimal `gorm:"column:rating_average;type:numeric(3,2);not null"`
	RatingCount   int             `gorm:"column:rating_count;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
