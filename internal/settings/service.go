// Package settings owns the platform pricing parameters: commissions, the
// service fee, the default delivery fee and the free delivery threshold.
package settings

import (
	"context"
	"errors"
	"fmt"

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

const cacheKey = "platform_settings"

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reads and updates the platform settings.
type Service interface {
	Get(ctx context.Context) (*SettingsDTO, error)
	Pricing(ctx context.Context) (pricing.Settings, error)
	Update(ctx context.Context, actorID uuid.UUID, input UpdateInput) (*SettingsDTO, error)
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Cache  *cache.Cache
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	cache  *cache.Cache
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("settings repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		cache:  params.Cache,
		logg:   params.Logger,
	}, nil
}

// Get serves the settings from cache when possible.
func (s *service) Get(ctx context.Context) (*SettingsDTO, error) {
	dto, err := cache.Load(ctx, s.cache, cacheKey, []string{cache.TagSettings}, s.load)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Pricing(ctx context.Context) (pricing.Settings, error) {
	dto, err := s.Get(ctx)
	if err != nil {
		return pricing.Settings{}, err
	}
	return dto.Pricing(), nil
}

func (s *service) load(ctx context.Context) (SettingsDTO, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return SettingsDTO{}, mapRepoError(err)
	}
	return FromModel(*row), nil
}

func (s *service) Update(ctx context.Context, actorID uuid.UUID, input UpdateInput) (*SettingsDTO, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var updated SettingsDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.GetForUpdate(ctx)
		if err != nil {
			return mapRepoError(err)
		}
		before := FromModel(*row)

		applyUpdate(row, input)
		row.UpdatedBy = &actorID
		if err := repo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
		}
		updated = FromModel(*row)

		return s.outbox.Emit(ctx, tx, outbox.Change{
			Table: enums.TablePlatformSettings,
			Op:    enums.ChangeOpUpdate,
			RowID: RowID,
			Old:   before,
			New:   updated,
			Actor: &changefeed.Actor{UserID: actorID, Role: string(enums.UserRoleAdmin)},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, cache.TagSettings); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settings.cache_invalidate_failed")
	}
	s.logg.Info(s.logg.WithUserID(ctx, actorID.String()), "settings.updated")
	return &updated, nil
}

func applyUpdate(row *models.PlatformSettings, input UpdateInput) {
	if input.PlatformCommissionPct != nil {
		row.PlatformCommissionPct = *input.PlatformCommissionPct
	}
	if input.ChefCommissionPct != nil {
		row.ChefCommissionPct = *input.ChefCommissionPct
	}
	if input.ServiceFee != nil {
		row.ServiceFee = *input.ServiceFee
	}
	if input.DefaultDeliveryFee != nil {
		row.DefaultDeliveryFee = *input.DefaultDeliveryFee
	}
	if input.FreeDeliveryThreshold.Set {
		row.FreeDeliveryThreshold = input.FreeDeliveryThreshold.Value
	}
}

func validateUpdate(input UpdateInput) error {
	if input.empty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if err := validatePct("platform_commission_pct", input.PlatformCommissionPct); err != nil {
		return err
	}
	if err := validatePct("chef_commission_pct", input.ChefCommissionPct); err != nil {
		return err
	}
	if err := validateNonNegative("service_fee", input.ServiceFee); err != nil {
		return err
	}
	if err := validateNonNegative("default_delivery_fee", input.DefaultDeliveryFee); err != nil {
		return err
	}
	if input.FreeDeliveryThreshold.Set {
		if err := validateNonNegative("free_delivery_threshold", input.FreeDeliveryThreshold.Value); err != nil {
			return err
		}
	}
	return nil
}

func validatePct(field string, value *decimal.Decimal) error {
	if value == nil {
		return nil
	}
	if value.IsNegative() || value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between 0 and 100", field)).
			WithDetails(map[string]any{"field": field, "value": value.String()})
	}
	return nil
}

func validateNonNegative(field string, value *decimal.Decimal) error {
	if value == nil {
		return nil
	}
	if value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must not be negative", field)).
			WithDetails(map[string]any{"field": field, "value": value.String()})
	}
	return nil
}

func mapRepoError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "platform settings not configured")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform settings")
}
