// ABOUTME: Redaction of credentials and secret values before they reach logs or error payloads.
// ABOUTME: Works on decoded JSON trees, raw JSON bodies, HTTP headers and query strings.

package redact

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

var sensitiveTokens = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"access_key",
	"refresh",
	"credential",
	"signature",
	"private_key",
	"cookie",
}

// Keys that hold a secret payload without naming it.
var sensitiveExact = map[string]bool{
	"value":               true,
	"key":                 true,
	"client_key":          true,
	"bearer":              true,
	"x-api-key":           true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

// ShouldRedactKey reports whether values stored under key must be hidden.
func ShouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	if redact, ok := sensitiveExact[key]; ok {
		return redact
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

// Identifiers that contain a sensitive token but are safe to log.
func isTraceabilityKey(key string) bool {
	switch key {
	case "secret_name",
		"secret_count",
		"secrets",
		"token_url",
		"next_page_token",
		"pagination.next_page_token",
		"previous_page_token",
		"request_id",
		"trace_id",
		"organization_id",
		"project_id",
		"app_name":
		return true
	default:
		return false
	}
}

// Map returns a redacted deep copy of source.
func Map(source map[string]any) map[string]any {
	if len(source) == 0 {
		return map[string]any{}
	}
	return redactMap(source)
}

// Value redacts any decoded JSON value.
func Value(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = Value(typed[i])
		}
		return out
	default:
		return value
	}
}

func redactMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if ShouldRedactKey(key) {
			target[key] = Placeholder
			continue
		}
		target[key] = Value(value)
	}
	return target
}

// JSON redacts a raw JSON document. Bodies that are not JSON are replaced
// wholesale unless they are short enough to be a plain status message.
func JSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if len(raw) > 256 {
			return Placeholder
		}
		return String(string(raw))
	}
	return Value(decoded)
}

// String hides bearer tokens embedded in free text.
func String(s string) string {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, "bearer ")
	if idx < 0 {
		return s
	}
	return s[:idx+len("bearer ")] + Placeholder
}

// Header returns a flattened, redacted view of h suitable for logging.
func Header(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		if ShouldRedactKey(key) {
			out[key] = Placeholder
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// Query returns the encoded form of q with sensitive parameters hidden.
func Query(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	clean := make(url.Values, len(q))
	for key, values := range q {
		if ShouldRedactKey(key) {
			clean[key] = []string{Placeholder}
			continue
		}
		clean[key] = values
	}
	return clean.Encode()
}
