package settings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/pricing"
	"github.com/angelmondragon/cookerz-backend/pkg/types"
)

// RowID identifies the settings singleton in the change feed.
var RowID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// SettingsDTO is the API and change-feed shape of the platform settings.
type SettingsDTO struct {
	PlatformCommissionPct decimal.Decimal  `json:"platform_commission_pct"`
	ChefCommissionPct     decimal.Decimal  `json:"chef_commission_pct"`
	ServiceFee            decimal.Decimal  `json:"service_fee"`
	DefaultDeliveryFee    decimal.Decimal  `json:"default_delivery_fee"`
	FreeDeliveryThreshold *decimal.Decimal `json:"free_delivery_threshold"`
	UpdatedAt             time.Time        `json:"updated_at"`
	UpdatedBy             *uuid.UUID       `json:"updated_by,omitempty"`
}

func FromModel(m models.PlatformSettings) SettingsDTO {
	return SettingsDTO{
		PlatformCommissionPct: m.PlatformCommissionPct,
		ChefCommissionPct:     m.ChefCommissionPct,
		ServiceFee:            m.ServiceFee,
		DefaultDeliveryFee:    m.DefaultDeliveryFee,
		FreeDeliveryThreshold: m.FreeDeliveryThreshold,
		UpdatedAt:             m.UpdatedAt.UTC(),
		UpdatedBy:             m.UpdatedBy,
	}
}

// Pricing returns the calculator view of the settings.
func (s SettingsDTO) Pricing() pricing.Settings {
	return pricing.Settings{
		PlatformCommissionPct: s.PlatformCommissionPct,
		ChefCommissionPct:     s.ChefCommissionPct,
		ServiceFee:            s.ServiceFee,
		DefaultDeliveryFee:    s.DefaultDeliveryFee,
		FreeDeliveryThreshold: s.FreeDeliveryThreshold,
	}
}

// UpdateInput carries an admin patch. Nil pointers leave the field as is;
// FreeDeliveryThreshold distinguishes an explicit null (no threshold) from absence.
type UpdateInput struct {
	PlatformCommissionPct *decimal.Decimal
	ChefCommissionPct     *decimal.Decimal
	ServiceFee            *decimal.Decimal
	DefaultDeliveryFee    *decimal.Decimal
	FreeDeliveryThreshold types.Nullable[decimal.Decimal]
}

func (in UpdateInput) empty() bool {
	return in.PlatformCommissionPct == nil &&
		in.ChefCommissionPct == nil &&
		in.ServiceFee == nil &&
		in.DefaultDeliveryFee == nil &&
		!in.FreeDeliveryThreshold.Set
}
