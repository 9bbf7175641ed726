package schemagen

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// castTo coerces v to t. ok is false when v cannot represent t.
func castTo(t SchemaType, v any) (any, bool) {
	switch t {
	case TypeUnknown:
		return v, true
	case TypeNull:
		return nil, v == nil
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(b)
			return parsed, err == nil
		}
		if f, ok := toFloat(v); ok {
			return f != 0, true
		}
	case TypeInteger:
		if s, ok := v.(string); ok {
			i, err := strconv.ParseInt(s, 10, 64)
			return i, err == nil
		}
		if f, ok := toFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(math.Trunc(f)), true
		}
	case TypeNumber:
		if s, ok := v.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			return f, err == nil
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, true
		case nil:
			return "", false
		case map[string]any, []any:
			b, err := json.Marshal(s)
			return string(b), err == nil
		}
		return fmt.Sprint(v), true
	case TypeArray:
		switch a := v.(type) {
		case []any:
			return a, true
		case nil:
			return nil, false
		}
		if arr, ok := cloneValue(v).([]any); ok {
			return arr, true
		}
		return []any{v}, true
	case TypeObject:
		if m, ok := asMap(v); ok {
			return map[string]any(m), true
		}
	}
	return nil, false
}
