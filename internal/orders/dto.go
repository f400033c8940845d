package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// Actor is the authenticated caller an order operation runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// OrderDTO is the API and change-feed shape of an order.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	CookerID           uuid.UUID           `json:"cooker_id"`
	CustomerID         uuid.UUID           `json:"customer_id"`
	DeliveryPartnerID  *uuid.UUID          `json:"delivery_partner_id"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	DeliveryFee        decimal.Decimal     `json:"delivery_fee"`
	Discount           decimal.Decimal     `json:"discount"`
	Total              decimal.Decimal     `json:"total"`
	PlatformCommission decimal.Decimal     `json:"platform_commission"`
	CookerPayout       decimal.Decimal     `json:"cooker_payout"`
	Notes              *string             `json:"notes,omitempty"`
	Address            string              `json:"address"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	DeliveredAt        *time.Time          `json:"delivered_at"`
	CancelledAt        *time.Time          `json:"cancelled_at"`
	Items              []OrderItemDTO      `json:"items,omitempty"`
}

// OrderItemDTO is an order line. UnitProfit is joined from the menu item and
// only present on detail reads.
type OrderItemDTO struct {
	ID         uuid.UUID        `json:"id"`
	MenuItemID uuid.UUID        `json:"menu_item_id"`
	Title      string           `json:"title"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Quantity   int              `json:"quantity"`
	UnitProfit *decimal.Decimal `json:"unit_profit,omitempty"`
}

// ItemWithProfit is the repository projection of an order line joined to the
// current per-unit profit of its menu item.
type ItemWithProfit struct {
	models.OrderItem
	UnitProfit decimal.Decimal `gorm:"column:unit_profit"`
}

func FromModel(m models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 m.ID,
		CookerID:           m.CookerID,
		CustomerID:         m.CustomerID,
		DeliveryPartnerID:  m.DeliveryPartnerID,
		Status:             m.Status,
		PaymentMethod:      m.PaymentMethod,
		PaymentStatus:      m.PaymentStatus,
		Subtotal:           m.Subtotal,
		DeliveryFee:        m.DeliveryFee,
		Discount:           m.Discount,
		Total:              m.Total,
		PlatformCommission: m.PlatformCommission,
		CookerPayout:       m.CookerPayout,
		Notes:              m.Notes,
		Address:            m.Address,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
		DeliveredAt:        utcPtr(m.DeliveredAt),
		CancelledAt:        utcPtr(m.CancelledAt),
	}
	for _, item := range m.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Title:      item.Title,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		})
	}
	return dto
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// ListFilter narrows an order listing. CreatedFrom is inclusive, CreatedTo exclusive.
type ListFilter struct {
	Status      *enums.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Cursor      string
}
