// Package domainerrors carries typed failures from services to transports.
//
// Services return *Error values tagged with a Code; transports map the code to a
// status without inspecting messages. Store and infrastructure errors are wrapped
// so the original cause stays reachable through errors.Is / errors.As.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Ledger failures. All are detected before any state is written.
	CodeNotOperational      Code = "not_operational"
	CodeUnfunded            Code = "unfunded"
	CodeFlightNotRegistered Code = "flight_not_registered"
	CodeNoActivePolicy      Code = "no_active_policy"
	CodeAlreadySettled      Code = "already_settled"
	CodeFlightNotDelayed    Code = "flight_not_delayed"
	CodeInsufficientFee     Code = "insufficient_fee"
	CodeIndexMismatch       Code = "index_mismatch"
	CodeInsufficientFunds   Code = "insufficient_funds"
	CodeInsufficientCustody Code = "insufficient_custody"
	CodePremiumCapExceeded  Code = "premium_cap_exceeded"
)

// Error is a coded domain failure.
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

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
