package rowcache

import (
	"encoding/json"
	"math"
	"testing"
)

func TestIDFromValue(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
		isInt  bool
	}{
		{int64(7), "7", true, true},
		{int(7), "7", true, true},
		{uint8(7), "7", true, true},
		{float64(7), "7", true, true},
		{float64(7.5), "7.5", true, false},
		{float64(1 << 63), "9223372036854775808", true, false},
		{float64(-1 << 63), "-9223372036854775808", true, true},
		{json.Number("12"), "12", true, true},
		{"7", "7", true, false},
		{[]byte("abc"), "abc", true, false},
		{uint64(math.MaxUint64), "18446744073709551615", true, false},
		{math.NaN(), "", false, false},
		{nil, "", false, false},
		{struct{}{}, "", false, false},
	}
	for _, tt := range tests {
		id, ok := IDFromValue(tt.in)
		if ok != tt.wantOK {
			t.Fatalf("IDFromValue(%#v) ok=%v want %v", tt.in, ok, tt.wantOK)
		}
		if !ok {
			continue
		}
		if id.String() != tt.want || id.IsInt() != tt.isInt {
			t.Fatalf("IDFromValue(%#v) = %q (int=%v), want %q (int=%v)", tt.in, id, id.IsInt(), tt.want, tt.isInt)
		}
	}
}

func TestZeroID(t *testing.T) {
	var id ID
	if !id.IsZero() || id.String() != "" {
		t.Fatalf("zero id: %q", id)
	}
	if _, ok := IDFromValue(id); ok {
		t.Fatalf("zero id must not be accepted")
	}
}
