package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/internal/analytics"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// ErrMalformedImage marks events whose row image cannot be decoded. Retrying
// will not help, so the worker acks them.
var ErrMalformedImage = errors.New("malformed order image")

// orderImage is the subset of the published order row the export needs.
type orderImage struct {
	ID                 uuid.UUID             `json:"id"`
	CookerID           uuid.UUID             `json:"cooker_id"`
	CustomerID         uuid.UUID             `json:"customer_id"`
	DeliveryPartnerID  *uuid.UUID            `json:"delivery_partner_id"`
	Status             enums.OrderStatus     `json:"status"`
	PaymentMethod      enums.PaymentMethod   `json:"payment_method"`
	Subtotal           decimal.Decimal       `json:"subtotal"`
	DeliveryFee        decimal.Decimal       `json:"delivery_fee"`
	Discount           decimal.Decimal       `json:"discount"`
	Total              decimal.Decimal       `json:"total"`
	PlatformCommission decimal.Decimal       `json:"platform_commission"`
	CookerPayout       decimal.Decimal       `json:"cooker_payout"`
	CreatedAt          analytics.LenientTime `json:"created_at"`
	DeliveredAt        analytics.LenientTime `json:"delivered_at"`
}

// DeliveredOrderHandler writes one fact row per order that reaches delivered.
type DeliveredOrderHandler struct {
	writer FactWriter
}

func NewDeliveredOrderHandler(writer FactWriter) (*DeliveredOrderHandler, error) {
	if writer == nil {
		return nil, errors.New("fact writer required")
	}
	return &DeliveredOrderHandler{writer: writer}, nil
}

// Handle ignores anything that is not an order update into delivered.
func (h *DeliveredOrderHandler) Handle(ctx context.Context, event changefeed.Event) error {
	if event.Table != enums.TableOrders || event.Op != enums.ChangeOpUpdate {
		return nil
	}

	var next orderImage
	if err := json.Unmarshal(event.New, &next); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if next.Status != enums.OrderStatusDelivered {
		return nil
	}
	if len(event.Old) > 0 {
		var prev struct {
			Status enums.OrderStatus `json:"status"`
		}
		if err := json.Unmarshal(event.Old, &prev); err == nil && prev.Status == enums.OrderStatusDelivered {
			return nil
		}
	}

	row, err := buildFactRow(event, next)
	if err != nil {
		return err
	}
	return h.writer.InsertOrderFact(ctx, row)
}

func buildFactRow(event changefeed.Event, img orderImage) (OrderFactRow, error) {
	payload, err := EncodeJSON(event.New)
	if err != nil {
		return OrderFactRow{}, err
	}

	deliveredAt := event.OccurredAt.UTC()
	if img.DeliveredAt.Valid {
		deliveredAt = img.DeliveredAt.Time
	}
	orderedAt := deliveredAt
	if img.CreatedAt.Valid {
		orderedAt = img.CreatedAt.Time
	}

	var partner *string
	if img.DeliveryPartnerID != nil {
		v := img.DeliveryPartnerID.String()
		partner = &v
	}

	return OrderFactRow{
		EventID:                 event.ID.String(),
		OrderID:                 img.ID.String(),
		CookerID:                img.CookerID.String(),
		CustomerID:              img.CustomerID.String(),
		DeliveryPartnerID:       partner,
		PaymentMethod:           string(img.PaymentMethod),
		SubtotalCents:           Cents(img.Subtotal),
		DeliveryFeeCents:        Cents(img.DeliveryFee),
		DiscountCents:           Cents(img.Discount),
		TotalCents:              Cents(img.Total),
		PlatformCommissionCents: Cents(img.PlatformCommission),
		CookerPayoutCents:       Cents(img.CookerPayout),
		OrderedAt:               orderedAt,
		DeliveredAt:             deliveredAt,
		Payload:                 payload,
	}, nil
}
