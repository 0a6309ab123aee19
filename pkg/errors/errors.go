/*
Package errors defines the error taxonomy shared by the memory stores and
the orchestrator. Store failures fall into a small set of categories so
callers can distinguish "the memory does not exist" from "a backend is
down" without string matching.
*/
package errors

import (
	"errors"
	"fmt"
)

/*
StoreError categorizes a failure in one of the memory backends or in the
orchestration layer above them.
*/
type StoreError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

/*
Error implements the error interface for StoreError.
*/
func (e *StoreError) Error() string {
	return fmt.Sprintf("memory error %d: %s", e.Code, e.Message)
}

// Sentinel errors. Application codes use the -33000 range so they never
// collide with JSON-RPC reserved codes used by the transport layer.
var (
	ErrNotFound         = &StoreError{Code: -33000, Message: "memory not found"}
	ErrValidation       = &StoreError{Code: -33001, Message: "invalid request"}
	ErrStoreUnavailable = &StoreError{Code: -33002, Message: "store unavailable"}
	ErrInternal         = &StoreError{Code: -33099, Message: "internal error"}
)

// WithMessagef creates a *copy* of a StoreError with a formatted message.
// It does not modify the original error variable.
func (e *StoreError) WithMessagef(format string, args ...any) *StoreError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// Is makes sentinel matching work through WithMessagef copies: two
// StoreErrors are the same kind when their codes match.
func (e *StoreError) Is(target error) bool {
	var se *StoreError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// IsNotFound reports whether err is a not-found StoreError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
