package record

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes record construction failures.
type BuildErrorCode string

const (
	// CodeInvalidInput indicates inputs or results could not be canonicalized
	// (floats, nulls, unsupported types) or required metadata is missing.
	CodeInvalidInput BuildErrorCode = "INVALID_INPUT"

	// CodeSigningFailure indicates the signer rejected the payload.
	CodeSigningFailure BuildErrorCode = "SIGNING_FAILURE"
)

// BuildError is returned by Builder.Build. It surfaces synchronously to the
// caller; build failures never reach the admission gate or the ledger.
type BuildError struct {
	Code    BuildErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err is a BuildError with CodeInvalidInput.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == CodeInvalidInput
}

// IsSigningFailure reports whether err is a BuildError with CodeSigningFailure.
func IsSigningFailure(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == CodeSigningFailure
}
