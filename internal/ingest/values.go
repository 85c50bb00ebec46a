package ingest

import (
	"strconv"
	"strings"
)

// Helpers for walking loosely typed JSON payloads decoded into maps.

func ExtractString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch val := v.(type) {
		case string:
			return val
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

func FallbackString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func ExtractInt(m map[string]any, key string) int64 {
	if v, ok := m[key]; ok {
		return ParseInt(v)
	}
	return 0
}

// ExtractIntPtr returns nil when the key is absent or null.
func ExtractIntPtr(m map[string]any, key string) *int {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	n := int(ParseInt(v))
	return &n
}

func ExtractMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if mapVal, ok := v.(map[string]any); ok {
			return mapVal
		}
	}
	return map[string]any{}
}

func ExtractArray(m map[string]any, key string) []any {
	if v, ok := m[key]; ok {
		if arrVal, ok := v.([]any); ok {
			return arrVal
		}
	}
	return []any{}
}

// Path follows nested object keys, e.g. Path(fx, "fixture", "status").
func Path(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		cur = ExtractMap(cur, k)
	}
	return cur
}

func ParseInt(v any) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return i
	default:
		return 0
	}
}
