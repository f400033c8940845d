package analytics

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRecord is the typed shape bucketing works on. CreatedAt is nil when the
// source row had no usable creation timestamp.
type OrderRecord struct {
	ID        uuid.UUID    `json:"id"`
	CookerID  uuid.UUID    `json:"cooker_id"`
	CreatedAt *time.Time   `json:"created_at"`
	Items     []ItemRecord `json:"items,omitempty"`
}

// ItemRecord is an order line joined to its menu item's per-unit profit.
type ItemRecord struct {
	OrderID    uuid.UUID       `json:"order_id"`
	Quantity   int             `json:"quantity"`
	UnitProfit decimal.Decimal `json:"unit_profit"`
}

// Earning returns quantity x unit profit, unrounded.
func (i ItemRecord) Earning() decimal.Decimal {
	return i.UnitProfit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

var lenientLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes Postgres and JSON encoders
// produce. Values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range lenientLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// LenientTime decodes a JSON timestamp without ever failing. Malformed or
// missing values leave it unset.
type LenientTime struct {
	Time  time.Time
	Valid bool
}

func (t *LenientTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = LenientTime{}
		return nil
	}
	parsed, ok := ParseTimestamp(raw)
	*t = LenientTime{Time: parsed, Valid: ok}
	return nil
}

// Ptr returns nil for an unset timestamp.
func (t LenientTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type orderImage struct {
	ID        uuid.UUID   `json:"id"`
	CookerID  uuid.UUID   `json:"cooker_id"`
	CreatedAt LenientTime `json:"created_at"`
}

// DecodeOrderRecord reads an order row image from a change event. A bad
// created_at does not fail decoding; the record comes back without a timestamp.
func DecodeOrderRecord(image json.RawMessage) (OrderRecord, error) {
	var img orderImage
	if err := json.Unmarshal(image, &img); err != nil {
		return OrderRecord{}, err
	}
	return OrderRecord{ID: img.ID, CookerID: img.CookerID, CreatedAt: img.CreatedAt.Ptr()}, nil
}
