package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformSettingsID is the primary key of the only settings row.
const PlatformSettingsID = 1

// PlatformSettings holds the commission and fee parameters used for pricing.
// A nil FreeDeliveryThreshold means free delivery never applies.
type PlatformSettings struct {
	ID                    int              `gorm:"column:id;primaryKey"`
	PlatformCommissionPct decimal.Decimal  `gorm:"column:platform_commission_pct;type:numeric(5,2);not null"`
	ChefCommissionPct     decimal.Decimal  `gorm:"column:chef_commission_pct;type:numeric(5,2);not null"`
	ServiceFee            decimal.Decimal  `gorm:"column:service_fee;type:numeric(12,2);not null"`
	DefaultDeliveryFee    decimal.Decimal  `gorm:"column:default_delivery_fee;type:numeric(12,2);not null"`
	FreeDeliveryThreshold *decimal.Decimal `gorm:"column:free_delivery_threshold;type:numeric(12,2)"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	UpdatedBy             *uuid.UUID       `gorm:"column:updated_by;type:uuid"`
}

func (PlatformSettings) TableName() string {
	return "platform_settings"
}
