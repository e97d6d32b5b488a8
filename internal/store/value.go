package store

import (
	"math"
	"reflect"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// normalizeValue converts v into the JSON value model the store holds:
// nil, float64, string, bool, map[string]any or []any. Every number becomes a
// float64 so in-memory state compares equal to what the store file reloads.
// Anything else is round-tripped through JSON.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = normalizeValue(inner)
		}
		return out
	case Record:
		return normalizeValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	}

	if f, ok := valueToFloat64(v); ok {
		return f
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return normalizeValue(decoded)
}

// isEncodable reports whether a normalized value contains only finite numbers.
func isEncodable(v any) bool {
	switch val := v.(type) {
	case float64:
		return !math.IsNaN(val) && !math.IsInf(val, 0)
	case map[string]any:
		for _, inner := range val {
			if !isEncodable(inner) {
				return false
			}
		}
	case []any:
		for _, inner := range val {
			if !isEncodable(inner) {
				return false
			}
		}
	}
	return true
}

// valueToFloat64 is a helper to safely convert the numeric kinds to float64.
// Strings are never treated as numbers.
func valueToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case jsoniter.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// valuesEqual reports strict equality between two normalized values.
func valuesEqual(a, b any) bool {
	if fa, ok := a.(float64); ok {
		fb, ok := b.(float64)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// typeRank orders values of different kinds: missing/null first, then
// numbers, strings, booleans and finally compound values.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

// compareValues returns -1 if a<b, 0 if a==b, 1 if a>b.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch va := a.(type) {
	case nil:
		return 0
	case float64:
		vb := b.(float64)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	case string:
		return strings.Compare(va, b.(string))
	case bool:
		vb := b.(bool)
		if va == vb {
			return 0
		}
		if !va {
			return -1
		}
		return 1
	default:
		return strings.Compare(canonicalKey(a), canonicalKey(b))
	}
}

// canonicalKey renders v as JSON with sorted map keys, so equal values
// always produce the same key.
func canonicalKey(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
