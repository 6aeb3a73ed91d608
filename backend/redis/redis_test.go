package redis

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToRowStripsPlaceholder(t *testing.T) {
	neg := toRow(map[string]string{PlaceholderField: PlaceholderValue})
	if len(neg) != 0 {
		t.Fatalf("placeholder-only hash must be a negative entry, got %v", neg)
	}
	row := toRow(map[string]string{PlaceholderField: PlaceholderValue, "id": "7"})
	if len(row) != 1 || row["id"] != "7" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestFieldValue(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(7), "7"},
		{7.5, "7.5"},
		{true, "true"},
		{[]byte("raw"), "raw"},
		{json.Number("12"), "12"},
		{at, "2024-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		got, err := fieldValue(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("fieldValue(%#v) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := fieldValue(struct{ A int }{1}); err == nil {
		t.Fatalf("expected error for struct value")
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("want ErrNilClient, got %v", err)
	}
}
