package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	"github.com/angelmondragon/cookerz-backend/internal/settings"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/types"
)

func PublicSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type updateSettingsRequest struct {
	PlatformCommissionPct *decimal.Decimal               `json:"platform_commission_pct"`
	ChefCommissionPct     *decimal.Decimal               `json:"chef_commission_pct"`
	ServiceFee            *decimal.Decimal               `json:"service_fee"`
	DefaultDeliveryFee    *decimal.Decimal               `json:"default_delivery_fee"`
	FreeDeliveryThreshold types.Nullable[decimal.Decimal] `json:"free_delivery_threshold"`
}

// AdminUpdateSettings patches the platform settings. Range checks live in the service.
func AdminUpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), adminID, settings.UpdateInput{
			PlatformCommissionPct: body.PlatformCommissionPct,
			ChefCommissionPct:     body.ChefCommissionPct,
			ServiceFee:            body.ServiceFee,
			DefaultDeliveryFee:    body.DefaultDeliveryFee,
			FreeDeliveryThreshold: body.FreeDeliveryThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
