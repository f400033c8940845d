package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/cookerz-backend/internal/checkout"
	pkgcheckout "github.com/angelmondragon/cookerz-backend/pkg/checkout"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

type checkoutLine struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
}

func toLineInputs(lines []checkoutLine) []pkgcheckout.LineInput {
	out := make([]pkgcheckout.LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, pkgcheckout.LineInput{MenuItemID: line.MenuItemID, Quantity: line.Quantity})
	}
	return out
}

type quoteRequest struct {
	Lines []checkoutLine `json:"lines"`
}

// CheckoutQuote prices a cart without persisting anything.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body quoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Quote(r.Context(), toLineInputs(body.Lines))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type placeOrderRequest struct {
	Lines         []checkoutLine      `json:"lines"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required,enum"`
	Address       string              `json:"address" validate:"required,max=500"`
	Notes         *string             `json:"notes" validate:"omitempty,max=500"`
	Subtotal      *decimal.Decimal    `json:"subtotal"`
	DeliveryFee   *decimal.Decimal    `json:"delivery_fee"`
	Total         *decimal.Decimal    `json:"total"`
}

// CheckoutPlaceOrder creates an order for the authenticated customer. Totals
// the client displayed are sent back and must still match the server quote.
func CheckoutPlaceOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), customerID, checkoutsvc.PlaceOrderInput{
			Lines:         toLineInputs(body.Lines),
			PaymentMethod: body.PaymentMethod,
			Address:       validators.SanitizeString(body.Address, 500),
			Notes:         validators.SanitizeOptional(body.Notes, 500),
			Submitted: checkoutsvc.SubmittedTotals{
				Subtotal:    body.Subtotal,
				DeliveryFee: body.DeliveryFee,
				Total:       body.Total,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
