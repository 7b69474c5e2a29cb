package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidIdentity    = errors.New("invalid identity")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrAuthorityTimeout     = errors.New("authority timeout")
	ErrAuthorityUnreachable = errors.New("authority unreachable")
	ErrAuthorityRejected    = errors.New("authority rejected request")
	ErrMalformedResponse    = errors.New("malformed authority response")
)

// FailureKind classifies an RBAC client failure.
type FailureKind int

const (
	FailureTimeout FailureKind = iota + 1
	FailureUnreachable
	FailureRejected
	FailureMalformed
)

func (k FailureKind) sentinel() error {
	switch k {
	case FailureTimeout:
		return ErrAuthorityTimeout
	case FailureUnreachable:
		return ErrAuthorityUnreachable
	case FailureRejected:
		return ErrAuthorityRejected
	default:
		return ErrMalformedResponse
	}
}

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureUnreachable:
		return "unreachable"
	case FailureRejected:
		return "rejected"
	default:
		return "malformed"
	}
}

// AuthorityError is returned by the RBAC client for every failed call.
// errors.Is matches the sentinel for Kind; Unwrap exposes the cause.
type AuthorityError struct {
	Op         string
	Kind       FailureKind
	StatusCode int
	// Message is the authority-supplied message, if any.
	Message string
	Err     error
}

func (e *AuthorityError) Error() string {
	msg := fmt.Sprintf("rbac %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthorityError) Is(target error) bool { return target == e.Kind.sentinel() }

func (e *AuthorityError) Unwrap() error { return e.Err }

// LoginFailureMessage is the user-facing text for a failed login.
func LoginFailureMessage(err error) string {
	var ae *AuthorityError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Username and password are required"
	case errors.Is(err, ErrAuthorityTimeout):
		return "The authentication server did not respond in time. Please try again."
	case errors.Is(err, ErrAuthorityUnreachable):
		return "The authentication server is unreachable. Please try again later."
	case errors.As(err, &ae) && ae.Message != "":
		return ae.Message
	case errors.As(err, &ae) && ae.StatusCode >= http.StatusInternalServerError:
		return fmt.Sprintf("The authentication server returned an error (HTTP %d). Please try again later.", ae.StatusCode)
	default:
		return "Authentication failed"
	}
}

// LoginFailureStatus is the HTTP status for a failed login.
func LoginFailureStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorityTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrAuthorityUnreachable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformedResponse), authorityFault(err):
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}

// authorityFault reports a rejection caused by the authority itself (5xx)
// rather than by the credentials.
func authorityFault(err error) bool {
	var ae *AuthorityError
	return errors.As(err, &ae) && ae.Kind == FailureRejected && ae.StatusCode >= http.StatusInternalServerError
}
