package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/cookerz-backend/api/controllers"
	"github.com/angelmondragon/cookerz-backend/api/routes"
	"github.com/angelmondragon/cookerz-backend/internal/analytics"
	"github.com/angelmondragon/cookerz-backend/internal/analytics/export"
	"github.com/angelmondragon/cookerz-backend/internal/auth"
	"github.com/angelmondragon/cookerz-backend/internal/checkout"
	"github.com/angelmondragon/cookerz-backend/internal/livequery"
	"github.com/angelmondragon/cookerz-backend/internal/media"
	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/internal/realtime"
	"github.com/angelmondragon/cookerz-backend/internal/reviews"
	"github.com/angelmondragon/cookerz-backend/internal/settings"
	"github.com/angelmondragon/cookerz-backend/internal/users"
	"github.com/angelmondragon/cookerz-backend/pkg/auth/session"
	"github.com/angelmondragon/cookerz-backend/pkg/bigquery"
	"github.com/angelmondragon/cookerz-backend/pkg/cache"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/db"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/metrics"
	"github.com/angelmondragon/cookerz-backend/pkg/migrate"
	"github.com/angelmondragon/cookerz-backend/pkg/moderation"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
	"github.com/angelmondragon/cookerz-backend/pkg/pubsub"
	"github.com/angelmondragon/cookerz-backend/pkg/redis"
	"github.com/angelmondragon/cookerz-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bigqueryClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bigqueryClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	realtimeMetrics := metrics.NewRealtimeMetrics(registry)

	queryCache, err := cache.New(redisClient, cfg.Cache, logg, realtimeMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create query cache", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		SessionManager: sessionManager,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}
	usersService, err := users.NewService(userRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repo:   settings.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Outbox: emitter,
		Cache:  queryCache,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create settings service", err)
		os.Exit(1)
	}

	menuRepo := menu.NewRepository(dbClient.DB())
	menuService, err := menu.NewService(menu.ServiceParams{
		Repo:     menuRepo,
		Tx:       dbClient,
		Settings: settingsService,
		Outbox:   emitter,
		Cache:    queryCache,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create menu service", err)
		os.Exit(1)
	}

	var (
		textModerator moderation.TextModerator
		classifier    moderation.ImageClassifier = unverifiedClassifier{}
	)
	if cfg.Moderation.Enabled() {
		moderationClient, err := moderation.NewClient(cfg.Moderation)
		if err != nil {
			logg.Error(ctx, "failed to create moderation client", err)
			os.Exit(1)
		}
		textModerator = moderationClient
		classifier = moderationClient
	} else {
		logg.Warn(ctx, "moderation disabled: review text is unchecked and image uploads are rejected")
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Menu:       menuService,
		Store:      gcsClient,
		Classifier: classifier,
		MaxBytes:   cfg.Media.MaxUploadBytes(),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:   ordersRepo,
		Menu:   menuRepo,
		Tx:     dbClient,
		Outbox: emitter,
		Cache:  queryCache,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:       dbClient,
		Menu:     menuRepo,
		Orders:   ordersRepo,
		Settings: settingsService,
		Outbox:   emitter,
		Cache:    queryCache,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Moderator: textModerator,
		Outbox:    emitter,
		Cache:     queryCache,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reviews service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Repo:   analytics.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create analytics service", err)
		os.Exit(1)
	}
	revenueService, err := export.NewRevenueService(bigqueryClient)
	if err != nil {
		logg.Error(ctx, "failed to create revenue service", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(realtime.HubParams{Logger: logg, Metrics: realtimeMetrics})
	defer hub.Close()
	receiver, err := realtime.NewReceiver(realtime.ReceiverParams{
		Subscription: pubsubClient.RealtimeSubscription(),
		Hub:          hub,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create realtime receiver", err)
		os.Exit(1)
	}
	go func() {
		if err := receiver.Run(ctx); err != nil {
			logg.Error(ctx, "realtime receiver stopped", err)
		}
	}()

	liveOrders, err := orders.NewLiveOrders(livequery.NewRegistry[orders.OrderDTO](hub, logg), ordersService)
	if err != nil {
		logg.Error(ctx, "failed to create live orders", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Sessions: sessionManager,
		Readiness: []controllers.ReadinessCheck{
			{Name: "db", Ping: dbClient.Ping},
			{Name: "redis", Ping: redisClient.Ping},
			{Name: "gcs", Ping: gcsClient.Ping},
			{Name: "pubsub", Ping: pubsubClient.Ping},
			{Name: "bigquery", Ping: bigqueryClient.Ping},
		},
		Gatherer:  registry,
		HTTP:      httpMetrics,
		Auth:      authService,
		Register:  registerService,
		Users:     usersService,
		Settings:  settingsService,
		Menu:      menuService,
		Media:     mediaService,
		Checkout:  checkoutService,
		Orders:    ordersService,
		Live:      liveOrders,
		Reviews:   reviewsService,
		Analytics: analyticsService,
		Revenue:   revenueService,

		DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Open SSE streams end when the hub closes their subscriptions.
		hub.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server shutdown failed", err)
		}
		logg.Info(serverCtx, "api server shut down gracefully")
	}
}
