package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNullableUnmarshal(t *testing.T) {
	type payload struct {
		Threshold Nullable[decimal.Decimal] `json:"threshold"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"threshold": "150.50"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.Threshold.Set || got.Threshold.Value == nil {
		t.Fatalf("expected value, got %+v", got.Threshold)
	}
	if got.Threshold.Value.String() != "150.5" {
		t.Fatalf("unexpected value %s", got.Threshold.Value)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"threshold": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.Threshold.Set || got.Threshold.Value != nil {
		t.Fatalf("expected explicit null, got %+v", got.Threshold)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.Threshold.Set {
		t.Fatalf("expected absent field, got %+v", got.Threshold)
	}

	if err := json.Unmarshal([]byte(`{"threshold": {}}`), &got); err == nil {
		t.Fatal("expected error for malformed value")
	}
}

func TestNullableMarshal(t *testing.T) {
	name := "Ada's Kitchen"
	out, err := json.Marshal(struct {
		A Nullable[string] `json:"a"`
		B Nullable[string] `json:"b"`
	}{A: Nullable[string]{Set: true, Value: &name}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":"Ada's Kitchen","b":null}` {
		t.Fatalf("unexpected json %s", out)
	}
}
