package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/api/controllers"
	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/internal/settings"
	pkgAuth "github.com/angelmondragon/cookerz-backend/pkg/auth"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/metrics"
)

type stubSessionManager struct{}

func (stubSessionManager) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubSettings struct {
	settings.Service
	gets int
}

func (s *stubSettings) Get(context.Context) (*settings.SettingsDTO, error) {
	s.gets++
	return &settings.SettingsDTO{}, nil
}

type stubMenu struct {
	menu.Service
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: "*"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "cookerz", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, settingsSvc settings.Service) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Config:   testConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Sessions: stubSessionManager{},
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Settings: settingsSvc,
		Menu:     stubMenu{},
		Readiness: []controllers.ReadinessCheck{
			{Name: "db", Ping: func(context.Context) error { return nil }},
		},
	}), reg
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubSettings{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "dev", rec.Header().Get("X-Cookerz-Env"))
	}
}

func TestPublicSettingsNeedsNoAuth(t *testing.T) {
	svc := &stubSettings{}
	router, _ := newTestRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.gets)
}

func TestPrivateRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, &stubSettings{})

	for _, path := range []string{"/api/v1/orders", "/api/v1/auth/me", "/api/v1/cooker/menu"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Contains(t, rec.Body.String(), "not authenticated")
	}
}

func TestRoleGates(t *testing.T) {
	router, _ := newTestRouter(t, &stubSettings{})

	cases := []struct {
		method string
		path   string
		role   enums.UserRole
	}{
		{http.MethodGet, "/api/v1/cooker/menu", enums.UserRoleCustomer},
		{http.MethodGet, "/api/v1/orders/stream", enums.UserRoleDelivery},
		{http.MethodPost, "/api/v1/orders/" + uuid.NewString() + "/claim", enums.UserRoleCooker},
		{http.MethodPost, "/api/v1/reviews", enums.UserRoleCooker},
		{http.MethodPut, "/api/admin/v1/settings", enums.UserRoleCooker},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearer(t, tc.role))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &stubSettings{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `cookerz_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &stubSettings{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
