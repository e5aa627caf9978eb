package normalization

import (
	"strconv"
	"strings"
	"time"
)

// AsString trims and returns value when it is a string.
func AsString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// AsInt64 coerces JSON numbers and numeric strings into int64.
func AsInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case float32:
		return int64(typed)
	case int:
		return int64(typed)
	case int32:
		return int64(typed)
	case int64:
		return typed
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

// AsInt is AsInt64 narrowed to int.
func AsInt(value any) int {
	return int(AsInt64(value))
}

// AsFloat64 coerces numeric values (including numeric strings) into float64.
func AsFloat64(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}

// AsBool accepts JSON booleans and the strings "true"/"false".
func AsBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// AsTime parses RFC 3339 timestamps and the zone-less layouts emitted by .NET
// backends. Zone-less values are taken as UTC.
func AsTime(value any) time.Time {
	s := AsString(value)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// Lookup returns the first present key of m, comparing keys case-insensitively
// so camelCase and PascalCase payloads decode the same way.
func Lookup(m map[string]any, keys ...string) any {
	if m == nil {
		return nil
	}
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	for k, v := range m {
		for _, key := range keys {
			if strings.EqualFold(k, key) {
				return v
			}
		}
	}
	return nil
}

// AsInterfaceSlice normalizes different collection types into a []any.
func AsInterfaceSlice(value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case []map[string]any:
		items := make([]any, 0, len(typed))
		for _, entry := range typed {
			items = append(items, entry)
		}
		return items
	default:
		return nil
	}
}

// MapFromPayload unwraps a {"data": {...}} envelope into the inner map.
func MapFromPayload(value any) map[string]any {
	if value == nil {
		return nil
	}
	if typed, ok := value.(map[string]any); ok {
		if data, ok := Lookup(typed, "data").(map[string]any); ok {
			return data
		}
		return typed
	}
	return nil
}

// SliceFromPayload accepts a bare array or an envelope carrying the array under
// "data", "items" or "value".
func SliceFromPayload(value any) []any {
	if items := AsInterfaceSlice(value); items != nil {
		return items
	}
	typed, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"data", "items", "value"} {
		inner := Lookup(typed, key)
		if items := AsInterfaceSlice(inner); items != nil {
			return items
		}
		if nested, ok := inner.(map[string]any); ok {
			if items := SliceFromPayload(nested); items != nil {
				return items
			}
		}
	}
	return nil
}
