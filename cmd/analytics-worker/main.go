// Command analytics-worker consumes the change feed and appends a fact row to
// BigQuery for every delivered order.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cookerz-backend/internal/analytics/export"
	"github.com/angelmondragon/cookerz-backend/pkg/bigquery"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/instance"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/cookerz-backend/pkg/pubsub"
	"github.com/angelmondragon/cookerz-backend/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"workerID":    instance.GetID(),
		"serviceKind": cfg.Service.Kind,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	defer pubsubClient.Close()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	defer bqClient.Close()

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		return errors.New("analytics subscription not configured")
	}

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	writer, err := export.NewWriter(bqClient, export.WriterConfig{OrderFactsTable: bqClient.OrderFactsTable()})
	if err != nil {
		return fmt.Errorf("order facts writer: %w", err)
	}
	handler, err := export.NewDeliveredOrderHandler(writer)
	if err != nil {
		return err
	}
	worker, err := export.NewWorker(export.WorkerParams{
		Subscription: subscription,
		Handler:      handler,
		Manager:      dedupe,
		Writer:       writer,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "table", bqClient.OrderFactsTable()), "analytics worker ready")
	return worker.Run(ctx)
}
