// Package analytics builds the cooker dashboards: monthly, weekly and daily
// order histograms with earnings computed from each item's unit profit.
package analytics

import (
	"context"
	"errors"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

// Service computes the reports for the authenticated cooker.
type Service interface {
	Monthly(ctx context.Context, cookerID uuid.UUID, month, year int) (*MonthlyReport, error)
	Weekly(ctx context.Context, cookerID uuid.UUID, week, year int, scheme WeekScheme) (*WeeklyReport, error)
	Daily(ctx context.Context, cookerID uuid.UUID, day, month, year int) (*DailyReport, error)
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("analytics repository required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func requireCooker(cookerID uuid.UUID) error {
	if cookerID == uuid.Nil {
		return pkgerrors.NotAuthenticated()
	}
	return nil
}

func (s *service) Monthly(ctx context.Context, cookerID uuid.UUID, month, year int) (*MonthlyReport, error) {
	if err := requireCooker(cookerID); err != nil {
		return nil, err
	}
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	if err := ValidateYear(year); err != nil {
		return nil, err
	}

	orders, err := s.load(ctx, cookerID, MonthWindow(month, year))
	if err != nil {
		return nil, err
	}
	report := Monthly(orders, month, year)
	s.debug(ctx, "analytics.monthly", cookerID, report.TotalOrders)
	return &report, nil
}

func (s *service) Weekly(ctx context.Context, cookerID uuid.UUID, week, year int, scheme WeekScheme) (*WeeklyReport, error) {
	if err := requireCooker(cookerID); err != nil {
		return nil, err
	}
	if scheme == "" {
		scheme = WeekSchemeLegacy
	}
	if err := ValidateYear(year); err != nil {
		return nil, err
	}
	if err := ValidateWeek(week, year, scheme); err != nil {
		return nil, err
	}

	window := LegacyWeekWindow(week, year)
	if scheme == WeekSchemeISO {
		window = ISOWeekWindow(week, year)
	}
	orders, err := s.load(ctx, cookerID, window)
	if err != nil {
		return nil, err
	}
	report := Weekly(orders, window)
	report.Week = week
	report.Year = year
	s.debug(ctx, "analytics.weekly", cookerID, report.TotalOrders)
	return &report, nil
}

func (s *service) Daily(ctx context.Context, cookerID uuid.UUID, day, month, year int) (*DailyReport, error) {
	if err := requireCooker(cookerID); err != nil {
		return nil, err
	}
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}
	if err := ValidateDay(day); err != nil {
		return nil, err
	}
	if err := ValidateYear(year); err != nil {
		return nil, err
	}

	orders, err := s.load(ctx, cookerID, DayWindow(day, month, year))
	if err != nil {
		return nil, err
	}
	report := Daily(orders, day, month, year)
	s.debug(ctx, "analytics.daily", cookerID, report.TotalOrders)
	return &report, nil
}

func (s *service) load(ctx context.Context, cookerID uuid.UUID, window Window) ([]OrderRecord, error) {
	orders, err := s.repo.ListCookerOrders(ctx, cookerID, window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cooker orders")
	}
	return orders, nil
}

func (s *service) debug(ctx context.Context, msg string, cookerID uuid.UUID, total int) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"cooker_id": cookerID.String(), "total_orders": total})
	s.logg.Debug(ctx, msg)
}
