package menu

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

// MenuItemDTO is the API and change-feed shape of a menu item.
type MenuItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	CookerID        uuid.UUID       `json:"cooker_id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Profit          decimal.Decimal `json:"profit"`
	Stock           int             `json:"stock"`
	IsAvailable     bool            `json:"is_available"`
	PrepTimeMinutes int             `json:"prep_time_minutes"`
	Category        string          `json:"category"`
	ImageURL        *string         `json:"image_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func FromModel(m models.MenuItem) MenuItemDTO {
	return MenuItemDTO{
		ID:              m.ID,
		CookerID:        m.CookerID,
		Title:           m.Title,
		Description:     m.Description,
		Price:           m.Price,
		Profit:          m.Profit,
		Stock:           m.Stock,
		IsAvailable:     m.IsAvailable,
		PrepTimeMinutes: m.PrepTimeMinutes,
		Category:        m.Category,
		ImageURL:        m.ImageURL,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func fromModels(rows []models.MenuItem) []MenuItemDTO {
	out := make([]MenuItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// CreateInput describes a new menu item. Profit is always derived.
type CreateInput struct {
	Title           string
	Description     *string
	Price           decimal.Decimal
	Stock           int
	IsAvailable     *bool
	PrepTimeMinutes int
	Category        string
}

// UpdateInput patches a menu item; nil fields are left untouched.
type UpdateInput struct {
	Title           *string
	Description     *string
	Price           *decimal.Decimal
	Stock           *int
	IsAvailable     *bool
	PrepTimeMinutes *int
	Category        *string
}

// EarningsPreview shows what a cooker keeps per unit at the current commission.
type EarningsPreview struct {
	Price             decimal.Decimal `json:"price"`
	ChefCommissionPct decimal.Decimal `json:"chef_commission_pct"`
	Earnings          decimal.Decimal `json:"earnings"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fieldError("title", "title is required")
	}
	if !in.Price.IsPositive() {
		return fieldError("price", "price must be greater than zero")
	}
	if in.Stock < 0 {
		return fieldError("stock", "stock must not be negative")
	}
	if in.PrepTimeMinutes < 0 {
		return fieldError("prep_time_minutes", "prep time must not be negative")
	}
	return nil
}

func (in UpdateInput) validate() error {
	if in.Title == nil && in.Description == nil && in.Price == nil && in.Stock == nil &&
		in.IsAvailable == nil && in.PrepTimeMinutes == nil && in.Category == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return fieldError("title", "title is required")
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return fieldError("price", "price must be greater than zero")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return fieldError("stock", "stock must not be negative")
	}
	if in.PrepTimeMinutes != nil && *in.PrepTimeMinutes < 0 {
		return fieldError("prep_time_minutes", "prep time must not be negative")
	}
	return nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}
