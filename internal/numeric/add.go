// Package numeric implements field increments for in-process backends.
package numeric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cast"
)

// Add returns cur+amount. Integers stay int64 while amount is integral;
// anything else becomes float64. A missing field (nil) starts at zero,
// matching HINCRBYFLOAT on Redis.
func Add(cur any, amount float64) (any, error) {
	integral := amount == math.Trunc(amount) && !math.IsInf(amount, 0)

	switch x := cur.(type) {
	case nil:
		if integral {
			return int64(amount), nil
		}
		return amount, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n := cast.ToInt64(x)
		if integral {
			return n + int64(amount), nil
		}
		return float64(n) + amount, nil
	case float32, float64:
		return cast.ToFloat64(x) + amount, nil
	case json.Number:
		return addText(x.String(), amount, integral)
	case string:
		return addText(x, amount, integral)
	case []byte:
		return addText(string(x), amount, integral)
	default:
		return nil, fmt.Errorf("field value %T is not numeric", cur)
	}
}

func addText(s string, amount float64, integral bool) (any, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && integral {
		return n + int64(amount), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("field value %q is not numeric", s)
	}
	return f + amount, nil
}
