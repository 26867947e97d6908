// Package domainerrors carries the error taxonomy that crosses the service boundary.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel). Services translate
// those into an *Error with a Code so transports can branch on the kind of failure without
// string matching. The Code is what clients see; the wrapped error is for logs only.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Values are stable and part of the HTTP contract.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeStaleState         Code = "stale_state"
	CodeInvariantViolation Code = "invariant_violation"
	CodeGradingUnavailable Code = "grading_unavailable"
	CodeGradingRejected    Code = "grading_rejected"
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeStorageFailure     Code = "storage_failure"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal"
)

// Error is a classified failure with a client-safe message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap classifies err under code, keeping err reachable through errors.Is/As.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost *Error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status used by the HTTP transport.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStaleState:
		return http.StatusConflict
	case CodeGradingRejected:
		return http.StatusBadGateway
	case CodeGradingUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
