package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, minute int) *time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	return &t
}

func ptr(t time.Time) *time.Time { return &t }

func order(created *time.Time, items ...ItemRecord) OrderRecord {
	return OrderRecord{ID: uuid.New(), CreatedAt: created, Items: items}
}

func item(qty int, profit string) ItemRecord {
	return ItemRecord{Quantity: qty, UnitProfit: decimal.RequireFromString(profit)}
}

func monthCounts(report MonthlyReport) []int {
	out := make([]int, len(report.Orders))
	for i, c := range report.Orders {
		out[i] = c.Orders
	}
	return out
}

func TestMonthlyOnePerDay(t *testing.T) {
	cases := []struct {
		name  string
		month time.Month
		year  int
		want  []int
	}{
		{"31 days", time.January, 2025, []int{7, 7, 7, 10}},
		{"30 days", time.April, 2025, []int{7, 7, 7, 9}},
		{"29 days", time.February, 2024, []int{7, 7, 7, 8}},
		{"28 days", time.February, 2025, []int{7, 7, 7, 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := time.Date(tc.year, tc.month, 1, 0, 0, 0, 0, time.UTC)
			days := first.AddDate(0, 1, -1).Day()

			var orders []OrderRecord
			for d := 1; d <= days; d++ {
				orders = append(orders, order(at(tc.year, tc.month, d, 12, 0)))
			}
			orders = append(orders,
				order(ptr(first.Add(-time.Second))),
				order(ptr(first.AddDate(0, 1, 0))),
			)

			report := Monthly(orders, int(tc.month), tc.year)
			require.Equal(t, tc.want, monthCounts(report))
			require.Equal(t, days, report.TotalOrders)
			for i, c := range report.Orders {
				require.Equal(t, i+1, c.Week)
			}
		})
	}
}

func TestMonthlyEarningsRoundedPerBucket(t *testing.T) {
	orders := []OrderRecord{
		order(at(2025, time.March, 3, 9, 0), item(2, "3.005")),
		order(at(2025, time.March, 5, 18, 30), item(1, "1.00")),
		order(at(2025, time.March, 20, 12, 0), item(3, "2.50")),
	}

	report := Monthly(orders, 3, 2025)
	require.Equal(t, "7.01", report.Earnings[0].Earning.StringFixed(2))
	require.True(t, report.Earnings[1].Earning.IsZero())
	require.Equal(t, "7.50", report.Earnings[2].Earning.StringFixed(2))
	require.Equal(t, "14.51", report.TotalEarnings.StringFixed(2))
	require.Equal(t, []int{2, 0, 1, 0}, monthCounts(report))
}

func TestMonthlySkipsMissingTimestamps(t *testing.T) {
	orders := []OrderRecord{
		order(nil, item(5, "10")),
		order(at(2025, time.June, 1, 0, 0), item(1, "2")),
	}
	report := Monthly(orders, 6, 2025)
	require.Equal(t, 1, report.TotalOrders)
	require.Equal(t, "2.00", report.TotalEarnings.StringFixed(2))
}

func TestWeeklyLegacyWindow(t *testing.T) {
	// 2025-01-01 is a Wednesday, so week 1 starts Monday 2025-01-06.
	window := LegacyWeekWindow(1, 2025)
	require.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), window.End)

	// Jan 1 falling on a Monday starts week 1 that day.
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), LegacyWeekWindow(1, 2024).Start)
	require.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), LegacyWeekWindow(2, 2024).Start)

	orders := []OrderRecord{
		order(at(2025, time.January, 5, 23, 59)),
		order(at(2025, time.January, 6, 0, 0), item(1, "4.25")),
		order(at(2025, time.January, 8, 10, 0)),
		order(at(2025, time.January, 8, 11, 0)),
		order(at(2025, time.January, 12, 23, 59)),
		order(ptr(time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC))),
		order(nil),
	}
	report := Weekly(orders, window)

	require.Len(t, report.Days, 7)
	assert.Equal(t, "Sunday", report.Days[0].Day)
	assert.Equal(t, "Saturday", report.Days[6].Day)
	assert.Equal(t, 1, report.Days[time.Sunday].Orders)
	assert.Equal(t, 1, report.Days[time.Monday].Orders)
	assert.Equal(t, 2, report.Days[time.Wednesday].Orders)
	assert.Equal(t, "4.25", report.Days[time.Monday].Earning.StringFixed(2))
	assert.Equal(t, 4, report.TotalOrders)

	sum := 0
	for _, d := range report.Days {
		sum += d.Orders
	}
	assert.Equal(t, report.TotalOrders, sum)
}

func TestISOWeekWindow(t *testing.T) {
	require.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), ISOWeekWindow(1, 2025).Start)
	require.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), ISOWeekWindow(1, 2026).Start)
	require.Equal(t, 52, ISOWeeksInYear(2025))
	require.Equal(t, 53, ISOWeeksInYear(2026))

	for _, year := range []int{2020, 2024, 2025, 2026} {
		for week := 1; week <= ISOWeeksInYear(year); week++ {
			gotYear, gotWeek := ISOWeekWindow(week, year).Start.ISOWeek()
			require.Equal(t, year, gotYear)
			require.Equal(t, week, gotWeek)
		}
	}
}

func TestDailyBucketsByHour(t *testing.T) {
	orders := []OrderRecord{
		order(at(2025, time.March, 9, 23, 59)),
		order(at(2025, time.March, 10, 0, 0)),
		order(at(2025, time.March, 10, 0, 30)),
		order(at(2025, time.March, 10, 13, 15)),
		order(ptr(time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC))),
		order(at(2025, time.March, 11, 0, 0)),
		order(nil),
	}

	report := Daily(orders, 10, 3, 2025)
	require.Equal(t, []HourCount{
		{Hour: "00:00", Orders: 2},
		{Hour: "13:00", Orders: 1},
		{Hour: "23:00", Orders: 1},
	}, report.Hours)
	require.Equal(t, 4, report.TotalOrders)
}

func TestDailyOverflowDayIsEmpty(t *testing.T) {
	orders := []OrderRecord{order(at(2025, time.May, 1, 10, 0))}

	window := DayWindow(31, 4, 2025)
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), window.Start)

	report := Daily(orders, 31, 4, 2025)
	require.Empty(t, report.Hours)
	require.Zero(t, report.TotalOrders)
}

func TestMonthBucket(t *testing.T) {
	for day, want := range map[int]int{1: 0, 7: 0, 8: 1, 14: 1, 15: 2, 21: 2, 22: 3, 28: 3, 31: 3} {
		assert.Equal(t, want, MonthBucket(day), "day %d", day)
	}
}

func TestDecodeOrderRecordLenientTimestamps(t *testing.T) {
	id := uuid.New()
	cooker := uuid.New()

	rec, err := DecodeOrderRecord(json.RawMessage(`{"id":"` + id.String() + `","cooker_id":"` + cooker.String() + `","created_at":"2025-03-10 13:15:00+00"}`))
	require.NoError(t, err)
	require.Equal(t, id, rec.ID)
	require.Equal(t, cooker, rec.CookerID)
	require.NotNil(t, rec.CreatedAt)
	require.Equal(t, time.Date(2025, 3, 10, 13, 15, 0, 0, time.UTC), *rec.CreatedAt)

	for _, raw := range []string{`"not a date"`, `12345`, `null`, `""`} {
		rec, err := DecodeOrderRecord(json.RawMessage(`{"id":"` + id.String() + `","created_at":` + raw + `}`))
		require.NoError(t, err, raw)
		require.Nil(t, rec.CreatedAt, raw)
	}

	_, err = DecodeOrderRecord(json.RawMessage(`{"id":42}`))
	require.Error(t, err)
}

func TestParseTimestampFormats(t *testing.T) {
	want := time.Date(2025, 3, 10, 13, 15, 0, 0, time.UTC)
	for _, raw := range []string{
		"2025-03-10T13:15:00Z",
		"2025-03-10T15:15:00+02:00",
		"2025-03-10T13:15:00",
		"2025-03-10 13:15:00",
	} {
		got, ok := ParseTimestamp(raw)
		require.True(t, ok, raw)
		require.True(t, want.Equal(got), raw)
	}
	_, ok := ParseTimestamp("10/03/2025")
	require.False(t, ok)
}
