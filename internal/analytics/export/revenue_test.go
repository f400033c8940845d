package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

type fakeIterator struct {
	rows []RevenuePoint
	err  error
	idx  int
}

func (f *fakeIterator) Next(dst interface{}) error {
	if f.idx >= len(f.rows) {
		if f.err != nil {
			return f.err
		}
		return iterator.Done
	}
	*(dst.(*RevenuePoint)) = f.rows[f.idx]
	f.idx++
	return nil
}

func newRevenueService(iter rowIterator, queryErr error, captured *string) *revenueService {
	return &revenueService{
		tableRef: "`proj.ds.order_facts`",
		query: func(_ context.Context, sql string, _ []cloudbigquery.QueryParameter) (rowIterator, error) {
			if captured != nil {
				*captured = sql
			}
			if queryErr != nil {
				return nil, queryErr
			}
			return iter, nil
		},
	}
}

func TestRevenueDailyTotals(t *testing.T) {
	var sql string
	svc := newRevenueService(&fakeIterator{rows: []RevenuePoint{
		{Day: "2025-03-01", Orders: 2, GrossCents: 3000, CommissionCents: 300, PayoutCents: 2700},
		{Day: "2025-03-02", Orders: 1, GrossCents: 1500, CommissionCents: 150, PayoutCents: 1350},
	}}, nil, &sql)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Daily(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, report.Days, 2)
	require.Equal(t, int64(3), report.TotalOrders)
	require.Equal(t, int64(4500), report.GrossCents)
	require.Equal(t, int64(450), report.CommissionCents)
	require.True(t, strings.Contains(sql, "`proj.ds.order_facts`"))
	require.True(t, strings.Contains(sql, "FORMAT_DATE('%F'"))
}

func TestRevenueDailyValidation(t *testing.T) {
	svc := newRevenueService(&fakeIterator{}, nil, nil)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Daily(context.Background(), time.Time{}, start)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Daily(context.Background(), start, start)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Daily(context.Background(), start, start.AddDate(2, 0, 0))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRevenueDailyDependencyErrors(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	svc := newRevenueService(nil, errors.New("quota"), nil)
	_, err := svc.Daily(context.Background(), start, start.AddDate(0, 0, 1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	svc = newRevenueService(&fakeIterator{err: errors.New("stream broke")}, nil, nil)
	_, err = svc.Daily(context.Background(), start, start.AddDate(0, 0, 1))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
