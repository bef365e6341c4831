package asset

import (
	"encoding/json"
	"math"
	"strconv"
)

// Export is one record of a file's sidecar data.
type Export map[string]any

// Lookup walks nested maps and lists. String keys index objects, int keys
// index arrays.
func (e Export) Lookup(keys ...any) (any, bool) {
	var cur any = map[string]any(e)
	for _, k := range keys {
		switch key := k.(type) {
		case string:
			m, ok := asMap(cur)
			if !ok {
				return nil, false
			}
			v, ok := m[key]
			if !ok {
				return nil, false
			}
			cur = v
		case int:
			list, ok := cur.([]any)
			if !ok || key < 0 || key >= len(list) {
				return nil, false
			}
			cur = list[key]
		default:
			return nil, false
		}
	}
	return cur, true
}

// StringAt returns the string found at keys.
func (e Export) StringAt(keys ...any) (string, bool) {
	v, ok := e.Lookup(keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolAt returns the boolean found at keys.
func (e Export) BoolAt(keys ...any) (bool, bool) {
	v, ok := e.Lookup(keys...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Export:
		return m, true
	default:
		return nil, false
	}
}

// typeOf returns the discriminator value stored under key.
func (e Export) typeOf(key string) string {
	s, _ := e[key].(string)
	return s
}

// versionOf returns the integer version tag stored under key. Missing or
// non-numeric tags report ok=false.
func (e Export) versionOf(key string) (int64, bool) {
	switch v := e[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return int64(math.Floor(f)), true
	case float64:
		return int64(math.Floor(v)), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
