package changefeed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

// Filter selects events by table, with an optional op and column equality.
type Filter struct {
	Table  enums.FeedTable
	Op     enums.ChangeOp
	Column string
	Value  string
}

// Key is a stable identity for the filter; equal filters share a subscription.
func (f Filter) Key() string {
	op := string(f.Op)
	if op == "" {
		op = "*"
	}
	if f.Column == "" {
		return fmt.Sprintf("%s:%s", f.Table, op)
	}
	return fmt.Sprintf("%s:%s:%s=%s", f.Table, op, f.Column, f.Value)
}

// Validate rejects filters that can never match.
func (f Filter) Validate() error {
	if !f.Table.IsValid() {
		return fmt.Errorf("unknown table %q", f.Table)
	}
	if f.Op != "" && !f.Op.IsValid() {
		return fmt.Errorf("unknown op %q", f.Op)
	}
	if f.Column == "" && f.Value != "" {
		return fmt.Errorf("filter value requires a column")
	}
	return nil
}

// Matches reports whether the event passes the filter. Column equality is
// checked against the row image, comparing the textual form of the value.
func (f Filter) Matches(e Event) bool {
	if e.Table != f.Table {
		return false
	}
	if f.Op != "" && e.Op != f.Op {
		return false
	}
	if f.Column == "" {
		return true
	}
	value, ok := columnValue(e.Image(), f.Column)
	if !ok {
		return false
	}
	return value == f.Value
}

func columnValue(image json.RawMessage, column string) (string, bool) {
	if len(image) == 0 {
		return "", false
	}
	var row map[string]any
	dec := json.NewDecoder(bytes.NewReader(image))
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil {
		return "", false
	}
	raw, ok := row[column]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(encoded)), true
	}
}
