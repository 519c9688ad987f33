package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var boolish = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

// ValueString renders a scalar the way comparisons see it.
func ValueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ToFloat reports the numeric value of numbers and numeric strings.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// ToBool reports the boolean value of bools, numbers and bool-ish strings
// (true/false, 1/0, yes/no, on/off, case-insensitive).
func ToBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, ok := boolish[strings.ToLower(strings.TrimSpace(v))]

		return b, ok
	}

	if f, ok := ToFloat(value); ok {
		return f != 0, true
	}

	return false, false
}

// IsEmpty treats nil, blank strings, false, zero numbers and empty collections as empty.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	}

	if f, ok := ToFloat(value); ok {
		return f == 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}

// Truthy is the boolean reading used by is_true/is_false: bool-ish values use their boolean
// meaning, anything else is true when not empty.
func Truthy(value any) bool {
	if b, ok := ToBool(value); ok {
		return b
	}

	return !IsEmpty(value)
}

// LooseEqual compares two values with a fixed coercion order: nil equals any falsy value,
// two numeric values compare as float64, two bool-ish values compare as booleans, and
// everything else compares as strings.
func LooseEqual(left, right any) bool {
	if left == nil || right == nil {
		if left == nil && right == nil {
			return true
		}

		if left == nil {
			return !Truthy(right)
		}

		return !Truthy(left)
	}

	if l, ok := ToFloat(left); ok {
		if r, ok := ToFloat(right); ok {
			return l == r
		}
	}

	if l, ok := ToBool(left); ok {
		if r, ok := ToBool(right); ok {
			return l == r
		}
	}

	return ValueString(left) == ValueString(right)
}
