package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is a dish offered by a cooker. Profit holds the per-unit margin
// the cooker keeps, derived from the commission in force when it was written.
type MenuItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CookerID        uuid.UUID       `gorm:"column:cooker_id;type:uuid;not null;index"`
	Title           string          `gorm:"column:title;not null"`
	Description     *string         `gorm:"column:description"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Profit          decimal.Decimal `gorm:"column:profit;type:numeric(12,2);not null"`
	Stock           int             `gorm:"column:stock;not null"`
	IsAvailable     bool            `gorm:"column:is_available;not null"`
	PrepTimeMinutes int             `gorm:"column:prep_time_minutes;not null"`
	Category        string          `gorm:"column:category;not null"`
	ImageURL        *string         `gorm:"column:image_url"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MenuItem) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
