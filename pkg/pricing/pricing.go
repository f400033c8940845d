// Package pricing holds the pure cart pricing rules shared by the quote and
// checkout flows.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Settings is the subset of platform settings the calculator reads.
type Settings struct {
	PlatformCommissionPct decimal.Decimal
	ChefCommissionPct     decimal.Decimal
	ServiceFee            decimal.Decimal
	DefaultDeliveryFee    decimal.Decimal
	// FreeDeliveryThreshold nil means delivery is never free.
	FreeDeliveryThreshold *decimal.Decimal
}

// Line is a priced cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the computed breakdown for a cart.
type Quote struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	DeliveryFee        decimal.Decimal `json:"delivery_fee"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	ServiceFee         decimal.Decimal `json:"service_fee"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
	CookerPayout       decimal.Decimal `json:"cooker_payout"`
	FreeDelivery       bool            `json:"free_delivery"`
}

// Subtotal sums unit price times quantity over every line.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// DeliveryFee returns the default fee unless subtotal plus that fee reaches the
// free delivery threshold.
func DeliveryFee(subtotal decimal.Decimal, settings Settings) decimal.Decimal {
	candidate := settings.DefaultDeliveryFee
	if settings.FreeDeliveryThreshold == nil {
		return candidate
	}
	if subtotal.Add(candidate).GreaterThanOrEqual(*settings.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return candidate
}

// Compute builds the full quote for the provided lines and discount.
func Compute(lines []Line, discount decimal.Decimal, settings Settings) Quote {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	subtotal := Subtotal(lines)
	fee := DeliveryFee(subtotal, settings)

	total := subtotal.Add(fee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	commission := subtotal.Mul(settings.PlatformCommissionPct).Div(hundred).Round(2)

	return Quote{
		Subtotal:           subtotal.Round(2),
		DeliveryFee:        fee.Round(2),
		Discount:           discount.Round(2),
		Total:              total.Round(2),
		ServiceFee:         settings.ServiceFee.Round(2),
		PlatformCommission: commission,
		CookerPayout:       subtotal.Sub(commission).Round(2),
		FreeDelivery:       fee.IsZero() && settings.DefaultDeliveryFee.IsPositive(),
	}
}

// EarningsPreview is what a cooker keeps per unit after the chef commission.
func EarningsPreview(price, chefCommissionPct decimal.Decimal) decimal.Decimal {
	keep := hundred.Sub(chefCommissionPct).Div(hundred)
	return price.Mul(keep).Round(2)
}
