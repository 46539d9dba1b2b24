package manager

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable identifier of a failure class. It is reported to
// clients as errorType.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindBackendUnavailable Kind = "BackendUnavailable"
	KindBackendOverloaded  Kind = "BackendOverloaded"
	KindBackendInternal    Kind = "BackendInternalError"
	KindTimeout            Kind = "Timeout"
	KindCancelled          Kind = "Cancelled"
)

// StatusClientClosed is logged for calls whose client went away. Nothing is
// written to the client in that case.
const StatusClientClosed = 499

// gatewayError carries a Kind plus an optional cause.
type gatewayError struct {
	kind Kind
	msg  string
	err  error
}

func (e *gatewayError) Error() string {
	if e.err != nil && e.msg != "" {
		return e.msg + ": " + e.err.Error()
	}
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

func (e *gatewayError) Unwrap() error { return e.err }

// Kind returns the failure class.
func (e *gatewayError) Kind() Kind { return e.kind }

// StatusCode maps the failure class to an HTTP status.
func (e *gatewayError) StatusCode() int {
	switch e.kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBackendUnavailable, KindBackendOverloaded:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCancelled:
		return StatusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, format string, args ...any) error {
	return &gatewayError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, msg string) error {
	return &gatewayError{kind: kind, msg: msg, err: err}
}

// ErrValidation returns a ValidationError with the given message.
func ErrValidation(msg string) error { return newError(KindValidation, "%s", msg) }

// KindOf returns the failure class of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var ge *gatewayError
	if errors.As(err, &ge) {
		return ge.kind, true
	}
	return "", false
}

func isKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IsValidation reports whether err rejects the request input (422).
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsBackendUnavailable reports whether the backend could not be reached (503).
func IsBackendUnavailable(err error) bool { return isKind(err, KindBackendUnavailable) }

// IsBackendOverloaded reports whether the backend signalled resource exhaustion (503).
func IsBackendOverloaded(err error) bool { return isKind(err, KindBackendOverloaded) }

// IsBackendInternal reports a backend-side failure (500).
func IsBackendInternal(err error) bool { return isKind(err, KindBackendInternal) }

// IsTimeout reports whether the per-call deadline expired (504).
func IsTimeout(err error) bool { return isKind(err, KindTimeout) }

// IsCancelled reports whether the caller abandoned the call.
func IsCancelled(err error) bool { return isKind(err, KindCancelled) }
