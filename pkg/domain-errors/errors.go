// Package domainerrors provides coded errors for the service layer. Stores
// return sentinel errors for infrastructure facts; services translate those
// into coded errors so transport can classify them without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest marks malformed or rejected caller input (invalid role
	// code, missing location reference, bad scope payload).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an absent program, scope, role or entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state conflict. No operation currently raises it;
	// upstream failures deliberately collapse into CodeUpstream instead.
	CodeConflict Code = "conflict"
	// CodeUpstream marks an external collaborator call that did not report
	// success (location directory, profile, consent, event stream).
	CodeUpstream Code = "upstream_failure"
	// CodeInternal marks everything else; the message is safe to log but not
	// to show verbatim to callers.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for plain
// errors so unclassified failures never leak as client faults.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to the HTTP-style status used by the response
// envelope. The status is a classification, not a transport concern.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		// Absent programs/scopes surface as bad requests on this API, not 404s.
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
