package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	pkgbigquery "github.com/angelmondragon/cookerz-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

const (
	maxRevenueRange = 366 * 24 * time.Hour

	dailyRevenueSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(delivered_at)) AS day,
  COUNT(DISTINCT order_id) AS orders,
  SUM(total_cents) AS gross_cents,
  SUM(platform_commission_cents) AS commission_cents,
  SUM(cooker_payout_cents) AS payout_cents
FROM %s
WHERE delivered_at >= @start AND delivered_at < @end
GROUP BY day
ORDER BY day ASC
`
)

// RevenuePoint is one day of delivered-order revenue, in cents.
type RevenuePoint struct {
	Day             string `json:"day" bigquery:"day"`
	Orders          int64  `json:"orders" bigquery:"orders"`
	GrossCents      int64  `json:"gross_cents" bigquery:"gross_cents"`
	CommissionCents int64  `json:"commission_cents" bigquery:"commission_cents"`
	PayoutCents     int64  `json:"payout_cents" bigquery:"payout_cents"`
}

type RevenueReport struct {
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Days            []RevenuePoint `json:"days"`
	TotalOrders     int64          `json:"total_orders"`
	GrossCents      int64          `json:"gross_cents"`
	CommissionCents int64          `json:"commission_cents"`
}

// RevenueService answers the admin revenue dashboard from exported facts.
type RevenueService interface {
	Daily(ctx context.Context, start, end time.Time) (*RevenueReport, error)
}

type rowIterator interface {
	Next(dst interface{}) error
}

type queryFunc func(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error)

type revenueService struct {
	query    queryFunc
	tableRef string
}

func NewRevenueService(client *pkgbigquery.Client) (RevenueService, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return &revenueService{
		query: func(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowIterator, error) {
			return client.Query(ctx, sql, params)
		},
		tableRef: client.QualifiedTable(client.OrderFactsTable()),
	}, nil
}

func (s *revenueService) Daily(ctx context.Context, start, end time.Time) (*RevenueReport, error) {
	if start.IsZero() || end.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	if end.Sub(start) > maxRevenueRange {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "range must not exceed 366 days")
	}

	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: start.UTC()},
		{Name: "end", Value: end.UTC()},
	}
	iter, err := s.query(ctx, fmt.Sprintf(dailyRevenueSQL, s.tableRef), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query revenue")
	}

	report := &RevenueReport{Start: start.UTC(), End: end.UTC(), Days: []RevenuePoint{}}
	for {
		var point RevenuePoint
		err := iter.Next(&point)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read revenue row")
		}
		report.Days = append(report.Days, point)
		report.TotalOrders += point.Orders
		report.GrossCents += point.GrossCents
		report.CommissionCents += point.CommissionCents
	}
	return report, nil
}
