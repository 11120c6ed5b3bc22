package query

import (
	"errors"
	"fmt"
)

// Code categorizes query failures.
type Code string

const (
	// CodeInvalidQuery indicates an unusable filter, page size, or token.
	CodeInvalidQuery Code = "INVALID_QUERY"

	// CodeNotFound indicates the requested entry does not exist in the
	// queried snapshot.
	CodeNotFound Code = "NOT_FOUND"

	// CodeProofUnavailable indicates no verification artifact could be
	// produced for an entry.
	CodeProofUnavailable Code = "PROOF_UNAVAILABLE"
)

// Error is a structured query failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidQuery reports whether err carries CodeInvalidQuery.
// Uses errors.As to handle wrapped errors.
func IsInvalidQuery(err error) bool {
	return hasCode(err, CodeInvalidQuery)
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsProofUnavailable reports whether err carries CodeProofUnavailable.
func IsProofUnavailable(err error) bool {
	return hasCode(err, CodeProofUnavailable)
}

func hasCode(err error, code Code) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Code == code
}
