package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgcheckout "github.com/angelmondragon/cookerz-backend/pkg/checkout"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/pricing"
)

// QuoteLine is a priced line of a quote.
type QuoteLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Title      string          `json:"title"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// QuoteResult is the server-computed price breakdown for a cart.
type QuoteResult struct {
	CookerID string       `json:"cooker_id"`
	Lines    []QuoteLine  `json:"lines"`
	Pricing  pricing.Quote `json:"pricing"`
}

// SubmittedTotals are the amounts the client displayed. Any field that is set
// must match the server computation.
type SubmittedTotals struct {
	Subtotal    *decimal.Decimal `json:"subtotal,omitempty"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

type expectedTotals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// PlaceOrderInput is a checkout request.
type PlaceOrderInput struct {
	Lines         []pkgcheckout.LineInput
	PaymentMethod enums.PaymentMethod
	Address       string
	Notes         *string
	Submitted     SubmittedTotals
}

func (in PlaceOrderInput) validate() error {
	if !in.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"field": "payment_method", "value": string(in.PaymentMethod)})
	}
	if strings.TrimSpace(in.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required").
			WithDetails(map[string]any{"field": "address"})
	}
	return nil
}

// mismatch reports whether any submitted amount differs from the computed quote.
func (s SubmittedTotals) mismatch(q pricing.Quote) bool {
	differs := func(submitted *decimal.Decimal, expected decimal.Decimal) bool {
		return submitted != nil && !submitted.Round(2).Equal(expected)
	}
	return differs(s.Subtotal, q.Subtotal) ||
		differs(s.DeliveryFee, q.DeliveryFee) ||
		differs(s.Total, q.Total)
}
