package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
)

// Repository reads and writes the settings singleton.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.PlatformSettings, error)
	GetForUpdate(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, settings *models.PlatformSettings) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var row models.PlatformSettings
	if err := r.db.WithContext(ctx).
		Where("id = ?", models.PlatformSettingsID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// GetForUpdate locks the row on Postgres. SQLite ignores the clause.
func (r *repository) GetForUpdate(ctx context.Context) (*models.PlatformSettings, error) {
	var row models.PlatformSettings
	query := r.db.WithContext(ctx).Where("id = ?", models.PlatformSettingsID)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Save(ctx context.Context, settings *models.PlatformSettings) error {
	if settings == nil {
		return errors.New("settings required")
	}
	return r.db.WithContext(ctx).Save(settings).Error
}
