package analytics

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

// WeekScheme selects how week numbers map onto calendar days.
type WeekScheme string

const (
	// WeekSchemeLegacy counts weeks from the first Monday on or after Jan 1.
	WeekSchemeLegacy WeekScheme = "legacy"
	WeekSchemeISO    WeekScheme = "iso"
)

const (
	minYear = 2000
	maxYear = 2100

	legacyWeeksPerYear = 52
)

func ParseMonth(raw string) (int, error) {
	return parseBounded("month", raw, 1, 12)
}

// ParseWeek parses a week number under the legacy scheme.
func ParseWeek(raw string) (int, error) {
	return parseBounded("week", raw, 1, legacyWeeksPerYear)
}

// ParseISOWeek parses an ISO-8601 week number, allowing week 53 only in
// years that have one.
func ParseISOWeek(raw string, year int) (int, error) {
	return parseBounded("week", raw, 1, ISOWeeksInYear(year))
}

func ParseDay(raw string) (int, error) {
	return parseBounded("day", raw, 1, 31)
}

func ParseYear(raw string) (int, error) {
	return parseBounded("year", raw, minYear, maxYear)
}

// ParseWeekScheme defaults to the legacy scheme when raw is empty.
func ParseWeekScheme(raw string, fallback WeekScheme) (WeekScheme, error) {
	switch WeekScheme(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		if fallback == "" {
			return WeekSchemeLegacy, nil
		}
		return fallback, nil
	case WeekSchemeLegacy:
		return WeekSchemeLegacy, nil
	case WeekSchemeISO:
		return WeekSchemeISO, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("scheme must be %q or %q", WeekSchemeLegacy, WeekSchemeISO))
	}
}

func ValidateMonth(month int) error {
	return checkRange("month", month, 1, 12)
}

func ValidateDay(day int) error {
	return checkRange("day", day, 1, 31)
}

func ValidateYear(year int) error {
	return checkRange("year", year, minYear, maxYear)
}

// ValidateWeek allows 1..52 under the legacy scheme and 1..52 or 53 under ISO,
// depending on the year.
func ValidateWeek(week, year int, scheme WeekScheme) error {
	upper := legacyWeeksPerYear
	if scheme == WeekSchemeISO {
		upper = ISOWeeksInYear(year)
	}
	return checkRange("week", week, 1, upper)
}

func parseBounded(field, raw string, lo, hi int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("%s must be a whole number", field))
	}
	if err := checkRange(field, value, lo, hi); err != nil {
		return 0, err
	}
	return value, nil
}

func checkRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d", field, lo, hi)).WithDetails(map[string]any{
			"field": field,
			"value": value,
		})
	}
	return nil
}
