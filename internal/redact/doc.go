// Package redact hides credentials and secret values before data reaches a
// log line or an error payload returned to a protocol caller.
package redact
