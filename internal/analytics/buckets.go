package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthBuckets is the fixed number of week-of-month buckets. The last one
// absorbs days 22 through the end of the month.
const MonthBuckets = 4

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func MonthWindow(month, year int) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// LegacyWeekWindow numbers weeks from the first Monday on or after Jan 1.
// Days before that Monday belong to no week.
func LegacyWeekWindow(week, year int) Window {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(jan1.Weekday()) + 7) % 7
	start := jan1.AddDate(0, 0, offset+(week-1)*7)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// ISOWeekWindow returns the Monday-based ISO-8601 week.
func ISOWeekWindow(week, year int) Window {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	daysSinceMonday := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -daysSinceMonday)
	start := week1.AddDate(0, 0, (week-1)*7)
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// ISOWeeksInYear is 53 for years whose Jan 1 is a Thursday, or a Wednesday in leap years.
func ISOWeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// DayWindow does not check the day against the month length; overflow is
// normalized by time.Date, so day 31 of a 30-day month is the 1st of the next.
// Callers filter with the requested calendar fields to keep such days empty.
func DayWindow(day, month, year int) Window {
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.Add(24 * time.Hour)}
}

// MonthBucket maps a day of month to its week-of-month bucket.
func MonthBucket(day int) int {
	return min((day-1)/7, MonthBuckets-1)
}

// WeekCount labels bucket i of a month as week i+1.
type WeekCount struct {
	Week   int `json:"week"`
	Orders int `json:"orders"`
}

type WeekEarning struct {
	Week    int             `json:"week"`
	Earning decimal.Decimal `json:"earning"`
}

type MonthlyReport struct {
	Month         int             `json:"month"`
	Year          int             `json:"year"`
	Orders        []WeekCount     `json:"orders"`
	Earnings      []WeekEarning   `json:"earnings"`
	TotalOrders   int             `json:"total_orders"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// Monthly buckets orders of the given month by week of month. Earnings are
// rounded to cents per bucket; the total is the sum of the rounded buckets.
func Monthly(orders []OrderRecord, month, year int) MonthlyReport {
	window := MonthWindow(month, year)
	var counts [MonthBuckets]int
	var sums [MonthBuckets]decimal.Decimal

	for _, order := range orders {
		if order.CreatedAt == nil {
			continue
		}
		at := order.CreatedAt.UTC()
		if !window.Contains(at) {
			continue
		}
		bucket := MonthBucket(at.Day())
		counts[bucket]++
		for _, item := range order.Items {
			sums[bucket] = sums[bucket].Add(item.Earning())
		}
	}

	report := MonthlyReport{
		Month:         month,
		Year:          year,
		Orders:        make([]WeekCount, MonthBuckets),
		Earnings:      make([]WeekEarning, MonthBuckets),
		TotalEarnings: decimal.Zero,
	}
	for i := 0; i < MonthBuckets; i++ {
		earning := sums[i].Round(2)
		report.Orders[i] = WeekCount{Week: i + 1, Orders: counts[i]}
		report.Earnings[i] = WeekEarning{Week: i + 1, Earning: earning}
		report.TotalOrders += counts[i]
		report.TotalEarnings = report.TotalEarnings.Add(earning)
	}
	return report
}

type DayCount struct {
	Day     string          `json:"day"`
	Orders  int             `json:"orders"`
	Earning decimal.Decimal `json:"earning"`
}

type WeeklyReport struct {
	Week          int             `json:"week"`
	Year          int             `json:"year"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Days          []DayCount      `json:"days"`
	TotalOrders   int             `json:"total_orders"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// Weekly buckets orders inside window by weekday, reported Sunday first
// whatever weekday the window starts on.
func Weekly(orders []OrderRecord, window Window) WeeklyReport {
	var counts [7]int
	var sums [7]decimal.Decimal

	for _, order := range orders {
		if order.CreatedAt == nil {
			continue
		}
		at := order.CreatedAt.UTC()
		if !window.Contains(at) {
			continue
		}
		day := int(at.Weekday())
		counts[day]++
		for _, item := range order.Items {
			sums[day] = sums[day].Add(item.Earning())
		}
	}

	report := WeeklyReport{
		Start:         window.Start,
		End:           window.End,
		Days:          make([]DayCount, 7),
		TotalEarnings: decimal.Zero,
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		earning := sums[day].Round(2)
		report.Days[day] = DayCount{Day: day.String(), Orders: counts[day], Earning: earning}
		report.TotalOrders += counts[day]
		report.TotalEarnings = report.TotalEarnings.Add(earning)
	}
	return report
}

type HourCount struct {
	Hour   string `json:"hour"`
	Orders int    `json:"orders"`
}

type DailyReport struct {
	Day         int         `json:"day"`
	Month       int         `json:"month"`
	Year        int         `json:"year"`
	Hours       []HourCount `json:"hours"`
	TotalOrders int         `json:"total_orders"`
}

// Daily buckets orders created on the given calendar day by hour. Only hours
// with at least one order are listed, in ascending order.
func Daily(orders []OrderRecord, day, month, year int) DailyReport {
	var counts [24]int
	for _, order := range orders {
		if order.CreatedAt == nil {
			continue
		}
		at := order.CreatedAt.UTC()
		if at.Year() != year || int(at.Month()) != month || at.Day() != day {
			continue
		}
		counts[at.Hour()]++
	}

	report := DailyReport{Day: day, Month: month, Year: year, Hours: []HourCount{}}
	for hour, count := range counts {
		if count == 0 {
			continue
		}
		report.Hours = append(report.Hours, HourCount{Hour: fmt.Sprintf("%02d:00", hour), Orders: count})
		report.TotalOrders += count
	}
	return report
}
