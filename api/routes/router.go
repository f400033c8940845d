package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cookerz-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/cookerz-backend/api/controllers/analytics"
	ordercontrollers "github.com/angelmondragon/cookerz-backend/api/controllers/orders"
	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/internal/analytics"
	"github.com/angelmondragon/cookerz-backend/internal/analytics/export"
	"github.com/angelmondragon/cookerz-backend/internal/auth"
	checkoutsvc "github.com/angelmondragon/cookerz-backend/internal/checkout"
	"github.com/angelmondragon/cookerz-backend/internal/media"
	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/internal/reviews"
	"github.com/angelmondragon/cookerz-backend/internal/settings"
	"github.com/angelmondragon/cookerz-backend/internal/users"
	"github.com/angelmondragon/cookerz-backend/pkg/auth/session"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/metrics"
)

// redisStore is the slice of the Redis client used by the auth rate limiter
// and the idempotency middleware.
type redisStore interface {
	middleware.RateLimiter
	middleware.IdempotencyStore
}

// liveOrders is what the order routes need from orders.LiveOrders.
type liveOrders interface {
	ordercontrollers.Transitioner
	ordercontrollers.Watcher
}

// Dependencies carries everything NewRouter wires into handlers. Readiness
// lists the dependencies probed by /health/ready.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     redisStore
	Sessions  session.AccessSessionChecker
	Readiness []controllers.ReadinessCheck
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTPMetrics

	Auth      auth.Service
	Register  auth.RegisterService
	Users     users.Service
	Settings  settings.Service
	Menu      menu.Service
	Media     media.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Live      liveOrders
	Reviews   reviews.Service
	Analytics analytics.Service
	Revenue   export.RevenueService

	DeadLetters controllers.DeadLetters
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTP),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.RateLimitPolicy{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.RateLimitPolicy{
		Name:     "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
		PerEmail: cfg.AuthRateLimit.RegisterEmailLimit,
	}

	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	once := middleware.Idempotent(deps.Redis, middleware.IdempotencyTTL, logg)
	critical := middleware.Idempotent(deps.Redis, middleware.CriticalIdempotencyTTL, logg)

	weekScheme := analytics.WeekSchemeLegacy
	if cfg.FeatureFlags.ISOWeeks {
		weekScheme = analytics.WeekSchemeISO
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/settings", controllers.PublicSettings(deps.Settings, logg))
		r.Get("/cookers/{cookerID}/menu", controllers.PublicCookerMenu(deps.Menu, logg))
		r.Get("/cookers/{cookerID}/reviews", controllers.PublicCookerReviews(deps.Reviews, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg), once).
			Post("/sign-up", controllers.AuthSignUp(deps.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/sign-in", controllers.AuthSignIn(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/sign-out", controllers.AuthSignOut(deps.Auth, logg))
			r.Get("/me", controllers.UsersMe(deps.Users, logg))
			r.Patch("/me", controllers.UsersUpdate(deps.Users, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/checkout/quote", controllers.CheckoutQuote(deps.Checkout, logg))
		r.With(middleware.RequireRole(logg, enums.UserRoleCustomer), critical).
			Post("/checkout/orders", controllers.CheckoutPlaceOrder(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleCooker)).
				Get("/stream", ordercontrollers.Stream(deps.Live, logg))
			r.Get("/{orderID}", ordercontrollers.Get(deps.Orders, logg))
			r.With(critical).Post("/{orderID}/status", ordercontrollers.Transition(deps.Live, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleDelivery), once).
				Post("/{orderID}/claim", ordercontrollers.Claim(deps.Orders, logg))
		})

		r.With(middleware.RequireRole(logg, enums.UserRoleCustomer), once).
			Post("/reviews", controllers.ReviewCreate(deps.Reviews, logg))

		r.Route("/cooker", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCooker))
			r.Get("/menu", controllers.CookerMenuList(deps.Menu, logg))
			r.With(once).Post("/menu", controllers.CookerMenuCreate(deps.Menu, logg))
			r.Post("/menu/earnings-preview", controllers.CookerEarningsPreview(deps.Menu, logg))
			r.Patch("/menu/{itemID}", controllers.CookerMenuUpdate(deps.Menu, logg))
			r.Delete("/menu/{itemID}", controllers.CookerMenuDelete(deps.Menu, logg))
			r.Post("/menu/{itemID}/image", controllers.CookerMenuImageUpload(deps.Media, cfg.Media.MaxUploadBytes(), logg))

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/monthly", analyticscontrollers.Monthly(deps.Analytics, logg))
				r.Get("/weekly", analyticscontrollers.Weekly(deps.Analytics, weekScheme, logg))
				r.Get("/daily", analyticscontrollers.Daily(deps.Analytics, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Put("/settings", controllers.AdminUpdateSettings(deps.Settings, logg))
		if deps.Revenue != nil {
			r.Get("/analytics/revenue", analyticscontrollers.Revenue(deps.Revenue, logg))
		}
		if deps.DeadLetters != nil {
			r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(deps.DeadLetters, logg))
			r.Get("/outbox/dead-letters/{eventID}", controllers.AdminDeadLetter(deps.DeadLetters, logg))
		}
	})

	return r
}
