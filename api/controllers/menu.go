package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

// PublicCookerMenu lists the available items of one cooker.
func PublicCookerMenu(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, err := validators.ParseUUIDParam(r, "cookerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListPublic(r.Context(), cookerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func CookerMenuList(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListOwn(r.Context(), cookerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

type createMenuItemRequest struct {
	Title           string          `json:"title" validate:"required,max=120"`
	Description     *string         `json:"description" validate:"omitempty,max=1000"`
	Price           decimal.Decimal `json:"price" validate:"money"`
	Stock           int             `json:"stock" validate:"min=0"`
	IsAvailable     *bool           `json:"is_available"`
	PrepTimeMinutes int             `json:"prep_time_minutes" validate:"min=0,max=1440"`
	Category        string          `json:"category" validate:"required,max=60"`
}

func CookerMenuCreate(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), cookerID, menu.CreateInput{
			Title:           validators.SanitizeString(body.Title, 120),
			Description:     validators.SanitizeOptional(body.Description, 1000),
			Price:           body.Price,
			Stock:           body.Stock,
			IsAvailable:     body.IsAvailable,
			PrepTimeMinutes: body.PrepTimeMinutes,
			Category:        validators.SanitizeString(body.Category, 60),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type updateMenuItemRequest struct {
	Title           *string          `json:"title" validate:"omitempty,max=120"`
	Description     *string          `json:"description" validate:"omitempty,max=1000"`
	Price           *decimal.Decimal `json:"price" validate:"omitempty,money"`
	Stock           *int             `json:"stock" validate:"omitempty,min=0"`
	IsAvailable     *bool            `json:"is_available"`
	PrepTimeMinutes *int             `json:"prep_time_minutes" validate:"omitempty,min=0,max=1440"`
	Category        *string          `json:"category" validate:"omitempty,max=60"`
}

func CookerMenuUpdate(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), cookerID, itemID, menu.UpdateInput{
			Title:           validators.SanitizeOptional(body.Title, 120),
			Description:     validators.SanitizeOptional(body.Description, 1000),
			Price:           body.Price,
			Stock:           body.Stock,
			IsAvailable:     body.IsAvailable,
			PrepTimeMinutes: body.PrepTimeMinutes,
			Category:        validators.SanitizeOptional(body.Category, 60),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CookerMenuDelete(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookerID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.ParseUUIDParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), cookerID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type earningsPreviewRequest struct {
	Price decimal.Decimal `json:"price"`
}

// CookerEarningsPreview shows the per-unit earnings for a candidate price.
func CookerEarningsPreview(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body earningsPreviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preview, err := svc.Preview(r.Context(), body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}
