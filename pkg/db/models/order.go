package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// Order is a customer purchase from a single cooker.
// Total always equals Subtotal + DeliveryFee - Discount.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CookerID           uuid.UUID           `gorm:"column:cooker_id;type:uuid;not null;index"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	DeliveryPartnerID  *uuid.UUID          `gorm:"column:delivery_partner_id;type:uuid"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	Subtotal           decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee        decimal.Decimal     `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Discount           decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Total              decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PlatformCommission decimal.Decimal     `gorm:"column:platform_commission;type:numeric(12,2);not null"`
	CookerPayout       decimal.Decimal     `gorm:"column:cooker_payout;type:numeric(12,2);not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus      enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	Notes              *string             `gorm:"column:notes"`
	Address            string              `gorm:"column:address;not null"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
