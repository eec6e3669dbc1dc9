// Package diagerr defines the failure taxonomy shared by every diagnostic in
// this module. Each failure carries a Code; the package-level sentinels match
// any error with the same code through errors.Is, so callers can write
//
//	if errors.Is(err, diagerr.ErrDegenerateDensity) { ... }
//
// regardless of how much context was wrapped around the original failure.
package diagerr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	// DimensionMismatch: chains or components disagree in width, or there is nothing to estimate.
	DimensionMismatch Code = "DIMENSION_MISMATCH"
	// DegenerateDensity: the density estimate at a quantile point is zero.
	DegenerateDensity Code = "DEGENERATE_DENSITY"
	// NonPositiveDefinite: a correlation or covariance matrix failed factorization.
	NonPositiveDefinite Code = "NON_POSITIVE_DEFINITE"
	// InvalidParameter: alpha, epsilon, quantile level or batch size out of range.
	InvalidParameter Code = "INVALID_PARAMETER"
	// InsufficientData: too few rows for the requested batching.
	InsufficientData Code = "INSUFFICIENT_DATA"
)

// Sentinels for errors.Is.
var (
	ErrDimensionMismatch   = &Error{Code: DimensionMismatch, Message: "dimension mismatch"}
	ErrDegenerateDensity   = &Error{Code: DegenerateDensity, Message: "degenerate density"}
	ErrNonPositiveDefinite = &Error{Code: NonPositiveDefinite, Message: "matrix is not positive definite"}
	ErrInvalidParameter    = &Error{Code: InvalidParameter, Message: "invalid parameter"}
	ErrInsufficientData    = &Error{Code: InsufficientData, Message: "insufficient data"}
)

// Error is a coded diagnostic failure.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap adds context to err. A coded cause keeps its code; any other cause is
// returned as a plain wrapped error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return &Error{
			Code:    de.Code,
			Message: message,
			Cause:   err,
		}
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
