// ABOUTME: Typed accessors over validated tool arguments.

package tools

import (
	"encoding/json"
	"strconv"
)

// Arguments are the decoded "arguments" object of a tools/call request.
type Arguments map[string]any

// String returns the string at key, or "".
func (a Arguments) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Int returns the integer at key, or def when absent or not numeric.
func (a Arguments) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the boolean at key, or def.
func (a Arguments) Bool(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}

// Has reports whether key was supplied with a non-null value.
func (a Arguments) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}
