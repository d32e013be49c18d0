package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindNotFound
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// Error is the tagged error type used across services. Message is safe to
// show to clients; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "requested resource not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "Invalid username or password"}
	ErrUnauthorized       = &Error{Kind: KindAuthentication, Message: "Unauthorized: Invalid or missing token"}
	ErrDuplicateUsername  = &Error{Kind: KindConflict, Message: "Username already exists"}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Message: "Email already exists"}
	ErrConcurrentUpdate   = &Error{Kind: KindConflict, Message: "User was modified concurrently, please retry"}
	ErrWeakPassword       = &Error{Kind: KindValidation, Message: "password does not meet the strength policy"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUpstream           = &Error{Kind: KindUpstreamUnavailable, Message: "identity service unavailable"}
	ErrInternalServer     = &Error{Kind: KindInternal, Message: "internal server error"}
)

// WeakPassword reports the first failing password rule.
func WeakPassword(reason string) error {
	return &Error{Kind: KindValidation, Message: reason, Err: ErrWeakPassword}
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message, Err: ErrValidation}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), Err: ErrNotFound}
}

// Conflictf narrows a duplicate sentinel with a more specific message.
func Conflictf(base *Error, format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: base}
}

func Upstream(err error) error {
	return &Error{Kind: KindUpstreamUnavailable, Message: ErrUpstream.Message, Err: err}
}

func Internal(err error, message string) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
// Untagged errors are internal, except Postgres unique violations.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
		return KindConflict
	}
	return KindInternal
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication, KindUpstreamUnavailable:
		// "cannot prove who you are" and "identity is down" both deny access.
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		if KindOf(err) == KindConflict {
			return "resource conflict"
		}
		return ErrInternalServer.Message
	}
	return e.Message
}
