// Package analytics serves the cooker earnings dashboards and the admin
// revenue report.
package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/internal/analytics"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

func cookerFromRequest(r *http.Request) (uuid.UUID, error) {
	id, _, ok := middleware.Actor(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.NotAuthenticated()
	}
	return id, nil
}

// queryYear falls back to the current UTC year when the parameter is absent.
func queryYear(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return timeNowUTC().Year(), nil
	}
	return analytics.ParseYear(raw)
}

// Monthly answers GET ?month=&year= with four week-of-month buckets.
func Monthly(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cookerID, err := cookerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		month, err := analytics.ParseMonth(r.URL.Query().Get("month"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		year, err := queryYear(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.Monthly(ctx, cookerID, month, year)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Weekly answers GET ?week=&year=&scheme=. Without a scheme parameter the
// deployment default applies.
func Weekly(svc analytics.Service, defaultScheme analytics.WeekScheme, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cookerID, err := cookerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		scheme, err := analytics.ParseWeekScheme(r.URL.Query().Get("scheme"), defaultScheme)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		year, err := queryYear(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rawWeek := r.URL.Query().Get("week")
		var week int
		if scheme == analytics.WeekSchemeISO {
			week, err = analytics.ParseISOWeek(rawWeek, year)
		} else {
			week, err = analytics.ParseWeek(rawWeek)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.Weekly(ctx, cookerID, week, year, scheme)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Daily answers GET ?day=&month=&year= with hourly order counts.
func Daily(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cookerID, err := cookerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		day, err := analytics.ParseDay(query.Get("day"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		month, err := analytics.ParseMonth(query.Get("month"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		year, err := queryYear(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.Daily(ctx, cookerID, day, month, year)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
