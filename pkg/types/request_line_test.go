package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequestLinesScanFromBytes(t *testing.T) {
	raw := []byte(`[{"service_id":"svc-1","name":"Consulta","unit_price":"20.00","quantity":2,"line_total":"40.00","vendor_name":"Clinica"}]`)

	var lines RequestLines
	if err := lines.Scan(raw); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].LineTotal.Equal(decimal.RequireFromString("40")) {
		t.Fatalf("unexpected line total %s", lines[0].LineTotal)
	}
	if lines[0].ImageURL != nil {
		t.Fatalf("expected nil image url")
	}
}

func TestRequestLinesNilValues(t *testing.T) {
	var lines RequestLines
	val, err := lines.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if val != "[]" {
		t.Fatalf("expected empty json array, got %v", val)
	}
	if err := lines.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if lines == nil || len(lines) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
	if err := lines.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
