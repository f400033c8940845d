// Package reviews lets customers rate delivered orders and keeps each
// cooker's rating aggregate current.
package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/cookerz-backend/pkg/cache"
	"github.com/angelmondragon/cookerz-backend/pkg/changefeed"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/moderation"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
)

const listLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	ListByCooker(ctx context.Context, cookerID uuid.UUID) ([]ReviewDTO, error)
}

type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Moderator moderation.TextModerator
	Outbox    outbox.Emitter
	Cache     *cache.Cache
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	moderator moderation.TextModerator
	outbox    outbox.Emitter
	cache     *cache.Cache
	logg      *logger.Logger
}

// NewService builds the review service. A nil moderator disables text checks.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("reviews repository required")
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
		repo:      params.Repo,
		tx:        params.Tx,
		moderator: params.Moderator,
		outbox:    params.Outbox,
		cache:     params.Cache,
		logg:      params.Logger,
	}, nil
}

func (s *service) ListByCooker(ctx context.Context, cookerID uuid.UUID) ([]ReviewDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cooker id is required")
	}
	key := fmt.Sprintf("reviews:cooker:%s", cookerID)
	tags := []string{cache.TagReviews(cookerID.String())}
	return cache.Load(ctx, s.cache, key, tags, func(ctx context.Context) ([]ReviewDTO, error) {
		rows, err := s.repo.ListByCooker(ctx, cookerID, listLimit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
		}
		out := make([]ReviewDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, FromModel(row))
		}
		return out, nil
	})
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}
	if err := s.moderate(ctx, input.Comment); err != nil {
		return nil, err
	}

	var created ReviewDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the ordering customer can review this order")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be reviewed").
				WithDetails(map[string]any{"status": string(order.Status)})
		}
		exists, err := repo.ExistsForOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
		}

		review := &models.Review{
			ID:         uuid.New(),
			OrderID:    order.ID,
			CookerID:   order.CookerID,
			CustomerID: customerID,
			Rating:     input.Rating,
			Comment:    input.Comment,
		}
		if err := repo.Create(ctx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}
		created = FromModel(*review)
		if err := s.outbox.Emit(ctx, tx, outbox.Change{
			Table: enums.TableReviews,
			Op:    enums.ChangeOpInsert,
			RowID: review.ID,
			New:   created,
			Actor: &changefeed.Actor{UserID: customerID, Role: string(enums.UserRoleCustomer)},
		}); err != nil {
			return err
		}
		return s.refreshRating(ctx, tx, repo, order.CookerID, customerID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, cache.TagReviews(created.CookerID.String())); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "reviews.cache_invalidate_failed")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"review_id": created.ID.String(),
		"order_id":  created.OrderID.String(),
		"cooker_id": created.CookerID.String(),
		"rating":    created.Rating,
	}), "review.created")
	return &created, nil
}

// moderate rejects flagged comments. API failures let the comment through.
func (s *service) moderate(ctx context.Context, comment *string) error {
	if s.moderator == nil || comment == nil {
		return nil
	}
	verdict, err := s.moderator.CheckText(ctx, *comment)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "reviews.moderation_unavailable")
		return nil
	}
	if verdict.Flagged {
		return pkgerrors.New(pkgerrors.CodeContentRejected, "review comment was rejected by moderation").
			WithDetails(map[string]any{"categories": verdict.Categories})
	}
	return nil
}

func (s *service) refreshRating(ctx context.Context, tx *gorm.DB, repo Repository, cookerID, actorID uuid.UUID) error {
	cooker, err := repo.FindCooker(ctx, cookerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cooker not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cooker")
	}
	stats, err := repo.Stats(ctx, cookerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	if err := repo.SaveCookerRating(ctx, cookerID, stats); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cooker rating")
	}

	before := cookerImage(*cooker)
	after := before
	after.RatingAverage = stats.Average
	after.RatingCount = stats.Count
	return s.outbox.Emit(ctx, tx, outbox.Change{
		Table: enums.TableCookers,
		Op:    enums.ChangeOpUpdate,
		RowID: cookerID,
		Old:   before,
		New:   after,
		Actor: &changefeed.Actor{UserID: actorID, Role: string(enums.UserRoleCustomer)},
	})
}
