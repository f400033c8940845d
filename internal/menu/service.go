// Package menu manages cooker menu items and their cached public listing.
package menu

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/pkg/cache"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
	"github.com/angelmondragon/cookerz-backend/pkg/pricing"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PricingSource provides the settings snapshot used to derive profit.
type PricingSource interface {
	Pricing(ctx context.Context) (pricing.Settings, error)
}

// Service exposes menu operations. Mutations are restricted to the owning cooker.
type Service interface {
	ListPublic(ctx context.Context, cookerID uuid.UUID) ([]MenuItemDTO, error)
	ListOwn(ctx context.Context, cookerID uuid.UUID) ([]MenuItemDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*MenuItemDTO, error)
	Create(ctx context.Context, cookerID uuid.UUID, input CreateInput) (*MenuItemDTO, error)
	Update(ctx context.Context, cookerID, itemID uuid.UUID, input UpdateInput) (*MenuItemDTO, error)
	Delete(ctx context.Context, cookerID, itemID uuid.UUID) error
	SetImage(ctx context.Context, cookerID, itemID uuid.UUID, imageURL string) (*MenuItemDTO, error)
	Preview(ctx context.Context, price decimal.Decimal) (*EarningsPreview, error)
}

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Settings PricingSource
	Outbox   outbox.Emitter
	Cache    *cache.Cache
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	settings PricingSource
	outbox   outbox.Emitter
	cache    *cache.Cache
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("menu repository required")
	case params.Tx == nil:
		return nil, errors.New("tx runner required")
	case params.Settings == nil:
		return nil, errors.New("settings source required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		settings: params.Settings,
		outbox:   params.Outbox,
		cache:    params.Cache,
		logg:     params.Logger,
	}, nil
}

func publicCacheKey(cookerID uuid.UUID) string {
	return "menu:public:" + cookerID.String()
}

// ListPublic returns the cooker's available items, served from cache.
func (s *service) ListPublic(ctx context.Context, cookerID uuid.UUID) ([]MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooker id is required")
	}
	tags := []string{cache.TagMenu(cookerID.String())}
	return cache.Load(ctx, s.cache, publicCacheKey(cookerID), tags, func(ctx context.Context) ([]MenuItemDTO, error) {
		rows, err := s.repo.ListByCooker(ctx, cookerID, true)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
		}
		return fromModels(rows), nil
	})
}

// ListOwn returns every item of the cooker, including unavailable ones.
func (s *service) ListOwn(ctx context.Context, cookerID uuid.UUID) ([]MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	rows, err := s.repo.ListByCooker(ctx, cookerID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	return fromModels(rows), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MenuItemDTO, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	dto := FromModel(*item)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, cookerID uuid.UUID, input CreateInput) (*MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	settings, err := s.settings.Pricing(ctx)
	if err != nil {
		return nil, err
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}
	item := &models.MenuItem{
		ID:              uuid.New(),
		CookerID:        cookerID,
		Title:           strings.TrimSpace(input.Title),
		Description:     input.Description,
		Price:           input.Price.Round(2),
		Stock:           input.Stock,
		IsAvailable:     available,
		PrepTimeMinutes: input.PrepTimeMinutes,
		Category:        strings.TrimSpace(input.Category),
	}
	item.Profit = pricing.EarningsPreview(item.Price, settings.ChefCommissionPct)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
		}
		return s.emit(ctx, tx, cookerID, enums.ChangeOpInsert, item.ID, nil, FromModel(*item))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cookerID)
	dto := FromModel(*item)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, cookerID, itemID uuid.UUID, input UpdateInput) (*MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	var settings *pricing.Settings
	if input.Price != nil {
		loaded, err := s.settings.Pricing(ctx)
		if err != nil {
			return nil, err
		}
		settings = &loaded
	}

	return s.mutate(ctx, cookerID, itemID, func(item *models.MenuItem) {
		if input.Title != nil {
			item.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			item.Description = input.Description
		}
		if input.Price != nil {
			item.Price = input.Price.Round(2)
			item.Profit = pricing.EarningsPreview(item.Price, settings.ChefCommissionPct)
		}
		if input.Stock != nil {
			item.Stock = *input.Stock
		}
		if input.IsAvailable != nil {
			item.IsAvailable = *input.IsAvailable
		}
		if input.PrepTimeMinutes != nil {
			item.PrepTimeMinutes = *input.PrepTimeMinutes
		}
		if input.Category != nil {
			item.Category = strings.TrimSpace(*input.Category)
		}
	})
}

func (s *service) SetImage(ctx context.Context, cookerID, itemID uuid.UUID, imageURL string) (*MenuItemDTO, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}
	return s.mutate(ctx, cookerID, itemID, func(item *models.MenuItem) {
		item.ImageURL = &imageURL
	})
}

func (s *service) mutate(ctx context.Context, cookerID, itemID uuid.UUID, apply func(*models.MenuItem)) (*MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	var updated MenuItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.owned(ctx, repo, cookerID, itemID)
		if err != nil {
			return err
		}
		before := FromModel(*item)
		apply(item)
		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
		}
		updated = FromModel(*item)
		return s.emit(ctx, tx, cookerID, enums.ChangeOpUpdate, item.ID, before, updated)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cookerID)
	return &updated, nil
}

func (s *service) Delete(ctx context.Context, cookerID, itemID uuid.UUID) error {
	if cookerID == uuid.Nil {
		return pkgerrors.NotAuthenticated()
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.owned(ctx, repo, cookerID, itemID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, item.ID); err != nil {
			return mapFindError(err)
		}
		return s.emit(ctx, tx, cookerID, enums.ChangeOpDelete, item.ID, FromModel(*item), nil)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, cookerID)
	return nil
}

func (s *service) Preview(ctx context.Context, price decimal.Decimal) (*EarningsPreview, error) {
	if price.IsNegative() {
		return nil, fieldError("price", "price must not be negative")
	}
	settings, err := s.settings.Pricing(ctx)
	if err != nil {
		return nil, err
	}
	return &EarningsPreview{
		Price:             price,
		ChefCommissionPct: settings.ChefCommissionPct,
		Earnings:          pricing.EarningsPreview(price, settings.ChefCommissionPct),
	}, nil
}

func (s *service) owned(ctx context.Context, repo Repository, cookerID, itemID uuid.UUID) (*models.MenuItem, error) {
	item, err := repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, mapFindError(err)
	}
	if item.CookerID != cookerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "menu item belongs to another cooker")
	}
	return item, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, cookerID uuid.UUID, op enums.ChangeOp, rowID uuid.UUID, before, after any) error {
	change := outbox.Change{
		Table: enums.TableMenuItems,
		Op:    op,
		RowID: rowID,
		Old:   before,
		New:   after,
		Actor: &changefeed.Actor{UserID: cookerID, Role: string(enums.UserRoleCooker)},
	}
	return s.outbox.Emit(ctx, tx, change)
}

func (s *service) invalidate(ctx context.Context, cookerID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, cache.TagMenu(cookerID.String())); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"cooker_id": cookerID.String(),
			"error":     err.Error(),
		}), "menu.cache_invalidate_failed")
	}
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
}
