// Package errs defines the error kinds returned by the invitation and
// redemption services. Handlers map a Kind to an HTTP status; the Message is
// safe to show to clients, the wrapped Err is only logged.
package errs

import (
	"errors"
	"net/http"
)

// Kind is a stable machine-readable error identifier.
type Kind string

const (
	KindDuplicatePending     Kind = "DUPLICATE_PENDING"
	KindAlreadyRegistered    Kind = "ALREADY_REGISTERED"
	KindActiveInvitation     Kind = "ACTIVE_INVITATION_EXISTS"
	KindOrganizationNotFound Kind = "ORGANIZATION_NOT_FOUND"
	KindInvalidReference     Kind = "INVALID_REFERENCE"
	KindInvalidToken         Kind = "INVALID_TOKEN"
	KindTokenExpired         Kind = "TOKEN_EXPIRED"
	KindAccountIDTaken       Kind = "ACCOUNT_ID_CONFLICT"
	KindNotFound             Kind = "NOT_FOUND"
	KindBadRequest           Kind = "BAD_REQUEST"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindForbidden            Kind = "FORBIDDEN"
	KindStorageUnavailable   Kind = "STORAGE_UNAVAILABLE"
	KindMailDispatchFailed   Kind = "MAIL_DISPATCH_FAILED"
	KindInternal             Kind = "INTERNAL"
)

// Error carries a Kind, a client-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so wrapped values compare equal to
// the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Business rejections. These are returned unchanged to the caller.
var (
	ErrDuplicatePending     = New(KindDuplicatePending, "invitation already sent and is still pending")
	ErrAlreadyRegistered    = New(KindAlreadyRegistered, "user already exists")
	ErrActiveInvitation     = New(KindActiveInvitation, "an active invitation already exists")
	ErrOrganizationNotFound = New(KindOrganizationNotFound, "organization not found")
	ErrInvalidReference     = New(KindInvalidReference, "invalid organization id format")
	ErrInvalidToken         = New(KindInvalidToken, "invalid invitation token")
	ErrTokenExpired         = New(KindTokenExpired, "invitation token has expired")
	ErrNotFound             = New(KindNotFound, "not found")
	ErrAccountIDTaken       = New(KindAccountIDTaken, "account identifier already in use")
)

// Storage wraps a persistence failure.
func Storage(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Message: "storage unavailable", Err: err}
}

// Mail wraps a failure to hand an email off for delivery.
func Mail(err error) *Error {
	return &Error{Kind: KindMailDispatchFailed, Message: "failed to dispatch invitation email", Err: err}
}

// Internal wraps any other unexpected failure behind a generic message.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// BadRequest is a validation failure outside the invitation taxonomy.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps a Kind to the status code the HTTP layer responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindDuplicatePending, KindAlreadyRegistered, KindActiveInvitation, KindAccountIDTaken:
		return http.StatusConflict
	case KindOrganizationNotFound, KindNotFound:
		return http.StatusNotFound
	case KindInvalidReference, KindInvalidToken, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTokenExpired:
		return http.StatusGone
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindMailDispatchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
