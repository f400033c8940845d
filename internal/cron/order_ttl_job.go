package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

const (
	defaultStaleCreatedTTL = 2 * time.Hour
	orderTTLBatchSize      = 100
	orderTTLMaxBatches     = 20
)

type staleOrderCanceller interface {
	CancelStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OrderTTLJobParams configure the stale order canceller.
type OrderTTLJobParams struct {
	Logger *logger.Logger
	Orders staleOrderCanceller
	TTL    time.Duration
}

// NewOrderTTLJob builds the job that cancels orders nobody confirmed in time.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleCreatedTTL
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders staleOrderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order_ttl" }

// Run cancels in batches until a short batch signals the backlog is drained.
// Per-order failures come back combined and do not stop later batches.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for batch := 0; batch < orderTTLMaxBatches; batch++ {
		cancelled, err := j.orders.CancelStale(ctx, cutoff, orderTTLBatchSize)
		total += cancelled
		if err != nil {
			j.log(ctx, cutoff, total)
			return fmt.Errorf("cancel stale orders: %w", err)
		}
		if cancelled < orderTTLBatchSize {
			break
		}
	}
	j.log(ctx, cutoff, total)
	return nil
}

func (j *orderTTLJob) log(ctx context.Context, cutoff time.Time, total int) {
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"ttl":       j.ttl.String(),
		"cancelled": total,
	}), "cron.order_ttl_complete")
}
