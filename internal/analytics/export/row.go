package export

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// OrderFactRow mirrors the order_facts BigQuery schema. Money is stored in cents.
type OrderFactRow struct {
	EventID                 string             `bigquery:"event_id"`
	OrderID                 string             `bigquery:"order_id"`
	CookerID                string             `bigquery:"cooker_id"`
	CustomerID              string             `bigquery:"customer_id"`
	DeliveryPartnerID       *string            `bigquery:"delivery_partner_id"`
	PaymentMethod           string             `bigquery:"payment_method"`
	SubtotalCents           int64              `bigquery:"subtotal_cents"`
	DeliveryFeeCents        int64              `bigquery:"delivery_fee_cents"`
	DiscountCents           int64              `bigquery:"discount_cents"`
	TotalCents              int64              `bigquery:"total_cents"`
	PlatformCommissionCents int64              `bigquery:"platform_commission_cents"`
	CookerPayoutCents       int64              `bigquery:"cooker_payout_cents"`
	OrderedAt               time.Time          `bigquery:"ordered_at"`
	DeliveredAt             time.Time          `bigquery:"delivered_at"`
	Payload                 cbigquery.NullJSON `bigquery:"payload"`
}

// Cents converts a currency amount to integer cents, rounding half away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// EncodeJSON serializes the provided payload so it can be stored in BigQuery JSON columns.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
