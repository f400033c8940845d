package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/internal/analytics"
	"github.com/angelmondragon/cookerz-backend/internal/analytics/export"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

type stubAnalytics struct {
	calls  int
	week   int
	year   int
	scheme analytics.WeekScheme
	month  int
	day    int
}

func (s *stubAnalytics) Monthly(_ context.Context, _ uuid.UUID, month, year int) (*analytics.MonthlyReport, error) {
	s.calls++
	s.month, s.year = month, year
	return &analytics.MonthlyReport{Month: month, Year: year}, nil
}

func (s *stubAnalytics) Weekly(_ context.Context, _ uuid.UUID, week, year int, scheme analytics.WeekScheme) (*analytics.WeeklyReport, error) {
	s.calls++
	s.week, s.year, s.scheme = week, year, scheme
	return &analytics.WeeklyReport{Week: week, Year: year}, nil
}

func (s *stubAnalytics) Daily(_ context.Context, _ uuid.UUID, day, month, year int) (*analytics.DailyReport, error) {
	s.calls++
	s.day, s.month, s.year = day, month, year
	return &analytics.DailyReport{Day: day, Month: month, Year: year}, nil
}

func cookerRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleCooker))
	return req.WithContext(ctx)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestMonthlyDefaultsYear(t *testing.T) {
	timeNowUTC = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { timeNowUTC = func() time.Time { return time.Now().UTC() } }()

	svc := &stubAnalytics{}
	rec := httptest.NewRecorder()
	Monthly(svc, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/monthly?month=3"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, svc.month)
	require.Equal(t, 2025, svc.year)
}

func TestMonthlyRejectsBadMonth(t *testing.T) {
	svc := &stubAnalytics{}
	for _, raw := range []string{"abc", "13", "0", ""} {
		rec := httptest.NewRecorder()
		Monthly(svc, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/monthly?year=2025&month="+raw))
		require.Equal(t, http.StatusBadRequest, rec.Code, raw)
	}
	require.Zero(t, svc.calls)
}

func TestMonthlyRequiresPrincipal(t *testing.T) {
	svc := &stubAnalytics{}
	rec := httptest.NewRecorder()
	Monthly(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/monthly?month=3", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, svc.calls)
}

func TestWeeklySchemes(t *testing.T) {
	svc := &stubAnalytics{}

	rec := httptest.NewRecorder()
	Weekly(svc, analytics.WeekSchemeLegacy, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/weekly?week=53&year=2026"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	Weekly(svc, analytics.WeekSchemeLegacy, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/weekly?week=53&year=2026&scheme=iso"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, analytics.WeekSchemeISO, svc.scheme)
	require.Equal(t, 53, svc.week)

	rec = httptest.NewRecorder()
	Weekly(svc, analytics.WeekSchemeISO, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/weekly?week=10&year=2025"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, analytics.WeekSchemeISO, svc.scheme)

	rec = httptest.NewRecorder()
	Weekly(svc, analytics.WeekSchemeLegacy, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/weekly?week=10&year=2025&scheme=fiscal"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyParsesFields(t *testing.T) {
	svc := &stubAnalytics{}
	rec := httptest.NewRecorder()
	Daily(svc, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/daily?day=31&month=4&year=2025"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 31, svc.day)
	require.Equal(t, 4, svc.month)

	rec = httptest.NewRecorder()
	Daily(svc, testLogger()).ServeHTTP(rec, cookerRequest("/analytics/daily?day=32&month=4&year=2025"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubRevenue struct {
	start, end time.Time
}

func (s *stubRevenue) Daily(_ context.Context, start, end time.Time) (*export.RevenueReport, error) {
	s.start, s.end = start, end
	return &export.RevenueReport{Start: start, End: end}, nil
}

func TestRevenueRange(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	timeNowUTC = func() time.Time { return now }
	defer func() { timeNowUTC = func() time.Time { return time.Now().UTC() } }()

	svc := &stubRevenue{}
	rec := httptest.NewRecorder()
	Revenue(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenue?preset=7d", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, now, svc.end)
	require.Equal(t, 7*24*time.Hour, svc.end.Sub(svc.start))

	rec = httptest.NewRecorder()
	Revenue(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenue?start=2025-01-01T00:00:00%2B02:00&end=2025-01-05T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC), svc.start)

	for _, query := range []string{"start=2025-01-01T00:00:00Z", "preset=1y", "start=yesterday&end=2025-01-05T00:00:00Z"} {
		rec = httptest.NewRecorder()
		Revenue(svc, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/revenue?"+query, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}
