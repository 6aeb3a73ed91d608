package rowcache

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type idKind uint8

const (
	idInt idKind = iota + 1
	idString
)

// ID is a primary-key value: either an integer or a string.
// The zero ID is invalid. Use IntID or StringID to build one.
type ID struct {
	kind idKind
	i    int64
	s    string
}

// IntID wraps an integer primary key.
func IntID(v int64) ID { return ID{kind: idInt, i: v} }

// StringID wraps a string primary key.
func StringID(v string) ID { return ID{kind: idString, s: v} }

// IntIDs is a shorthand for batches of integer keys.
func IntIDs(vs ...int64) []ID {
	out := make([]ID, len(vs))
	for i, v := range vs {
		out[i] = IntID(v)
	}
	return out
}

// StringIDs is the string counterpart of IntIDs.
func StringIDs(vs ...string) []ID {
	out := make([]ID, len(vs))
	for i, v := range vs {
		out[i] = StringID(v)
	}
	return out
}

func (id ID) IsZero() bool { return id.kind == 0 }
func (id ID) IsInt() bool  { return id.kind == idInt }

// Int returns the integer value; ok is false for string ids.
func (id ID) Int() (int64, bool) { return id.i, id.kind == idInt }

// String renders the id the way it appears inside cache keys:
// base 10 for integers, verbatim for strings.
func (id ID) String() string {
	switch id.kind {
	case idInt:
		return strconv.FormatInt(id.i, 10)
	case idString:
		return id.s
	default:
		return ""
	}
}

// Value returns the id as a plain Go value suitable for query arguments.
func (id ID) Value() any {
	if id.kind == idInt {
		return id.i
	}
	return id.s
}

// IDFromValue lifts a stored primary-key value back into an ID.
// Backends and codecs hand back whatever their encoding produces (int64 from
// SQL drivers, float64 from JSON, uint8 from msgpack, strings from Redis), so
// every integral numeric shape maps to IntID and text maps to StringID.
func IDFromValue(v any) (ID, bool) {
	switch x := v.(type) {
	case ID:
		return x, !x.IsZero()
	case int:
		return IntID(int64(x)), true
	case int8:
		return IntID(int64(x)), true
	case int16:
		return IntID(int64(x)), true
	case int32:
		return IntID(int64(x)), true
	case int64:
		return IntID(x), true
	case uint:
		return uintID(uint64(x))
	case uint8:
		return IntID(int64(x)), true
	case uint16:
		return IntID(int64(x)), true
	case uint32:
		return IntID(int64(x)), true
	case uint64:
		return uintID(x)
	case float32:
		return floatID(float64(x))
	case float64:
		return floatID(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return IntID(n), true
		}
		return StringID(x.String()), true
	case string:
		return StringID(x), true
	case []byte:
		return StringID(string(x)), true
	case fmt.Stringer:
		return StringID(x.String()), true
	default:
		return ID{}, false
	}
}

func uintID(u uint64) (ID, bool) {
	if u > math.MaxInt64 {
		return StringID(strconv.FormatUint(u, 10)), true
	}
	return IntID(int64(u)), true
}

func floatID(f float64) (ID, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ID{}, false
	}
	// 1<<63 is exact as a float64; MaxInt64 is not.
	if f == math.Trunc(f) && f >= math.MinInt64 && f < 1<<63 {
		return IntID(int64(f)), true
	}
	return StringID(strconv.FormatFloat(f, 'f', -1, 64)), true
}
