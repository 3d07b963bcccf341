// ABOUTME: Closed error taxonomy for gateway operations built on go-errors.
// ABOUTME: Every failure a tool call can produce maps onto exactly one Kind.

package apierr

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Kind is the closed set of failure classes surfaced to protocol callers.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindValidation
	KindNotFound
	KindUpstream
	KindTransient
	KindDecode
	KindPaginationLoop
)

// Text codes attached to the rich errors. They identify the Kind when an error
// crosses package boundaries wrapped in other errors.
const (
	TextAuthentication = "AUTHENTICATION_FAILED"
	TextValidation     = "VALIDATION_FAILED"
	TextNotFound       = "NOT_FOUND"
	TextUpstream       = "UPSTREAM_ERROR"
	TextTransient      = "TRANSIENT_ERROR"
	TextDecode         = "DECODE_ERROR"
	TextPaginationLoop = "PAGINATION_LOOP"
	TextInternal       = "INTERNAL_ERROR"
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindTransient:
		return "transient"
	case KindDecode:
		return "decode"
	case KindPaginationLoop:
		return "pagination_loop"
	default:
		return "internal"
	}
}

func newError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(source error, message string, category goerrors.Category, code int, textCode string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return newError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// Authentication reports a failed or unconfigured credential exchange.
func Authentication(message string, source error) error {
	return wrapError(source, message, goerrors.CategoryAuth, http.StatusUnauthorized, TextAuthentication, nil)
}

// Validation reports malformed or missing tool parameters. fields maps a
// parameter name to what is wrong with it.
func Validation(message string, fields map[string]string) error {
	var metadata map[string]any
	if len(fields) > 0 {
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		metadata = map[string]any{"fields": copied}
	}
	return newError(message, goerrors.CategoryValidation, http.StatusBadRequest, TextValidation, metadata)
}

// NotFound reports an unknown method, tool, prompt or resource.
func NotFound(what, name string) error {
	return newError(what+" not found", goerrors.CategoryNotFound, http.StatusNotFound, TextNotFound,
		map[string]any{"kind": what, "name": name})
}

// Upstream reports a 4xx answer from the platform. body must already be
// redacted by the caller.
func Upstream(status int, body any) error {
	metadata := map[string]any{"status": status}
	if body != nil {
		metadata["body"] = body
	}
	return newError(http.StatusText(status), goerrors.CategoryExternal, status, TextUpstream, metadata)
}

// Transient reports a 5xx answer, a timeout or a network failure. status is 0
// when no response was received.
func Transient(message string, status int, source error) error {
	code := status
	if code == 0 {
		code = http.StatusBadGateway
		if errors.Is(source, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
	}
	metadata := map[string]any{"retryable": true}
	if status != 0 {
		metadata["status"] = status
	}
	return wrapError(source, message, goerrors.CategoryExternal, code, TextTransient, metadata)
}

// Decode reports a success response whose body is not usable JSON.
func Decode(message string, source error) error {
	return wrapError(source, message, goerrors.CategoryExternal, http.StatusBadGateway, TextDecode, nil)
}

// PaginationLoop reports a list endpoint that violated its cursor contract.
func PaginationLoop(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryOperation, http.StatusBadGateway, TextPaginationLoop, metadata)
}

// Internal wraps anything unanticipated.
func Internal(message string, source error) error {
	return wrapError(source, message, goerrors.CategoryInternal, http.StatusInternalServerError, TextInternal, nil)
}

// KindOf classifies err. Errors that did not originate in this package are
// internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return KindInternal
	}
	switch rich.TextCode {
	case TextAuthentication:
		return KindAuthentication
	case TextValidation:
		return KindValidation
	case TextNotFound:
		return KindNotFound
	case TextUpstream:
		return KindUpstream
	case TextTransient:
		return KindTransient
	case TextDecode:
		return KindDecode
	case TextPaginationLoop:
		return KindPaginationLoop
	default:
		return KindInternal
	}
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the operation that produced err.
func Retryable(err error) bool {
	return Is(err, KindTransient)
}

// Status returns the HTTP-style status attached to err, or 0.
func Status(err error) int {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return 0
	}
	return rich.Code
}

// Message returns the caller-facing message of a taxonomy error.
func Message(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return rich.Message
}

// Metadata returns a copy of the metadata attached to err.
func Metadata(err error) map[string]any {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || len(rich.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(rich.Metadata))
	for k, v := range rich.Metadata {
		out[k] = v
	}
	return out
}
