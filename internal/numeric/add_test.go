package numeric

import (
	"encoding/json"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name   string
		cur    any
		amount float64
		want   any
	}{
		{"missing_int", nil, 3, int64(3)},
		{"missing_float", nil, 0.5, 0.5},
		{"int64", int64(10), 1, int64(11)},
		{"uint8_negative", uint8(10), -4, int64(6)},
		{"int_fraction", 10, 0.5, 10.5},
		{"float", 1.25, 1, 2.25},
		{"string_int", "41", 1, int64(42)},
		{"string_float", "1.5", 1, 2.5},
		{"json_number", json.Number("7"), 2, int64(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.cur, tt.amount)
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Add(%#v, %v) = %#v, want %#v", tt.cur, tt.amount, got, tt.want)
			}
		})
	}
}

func TestAddRejectsNonNumeric(t *testing.T) {
	for _, v := range []any{"abc", true, []int{1}} {
		if _, err := Add(v, 1); err == nil {
			t.Fatalf("Add(%#v) should fail", v)
		}
	}
}
