package ledger

import (
	"errors"
	"fmt"
)

// ErrNotSealed indicates no sealed batch covers the requested entry yet.
var ErrNotSealed = errors.New("ledger: no sealed batch covers entry")

// PersistenceError reports a storage failure that survived bounded retry.
// An approved record must never be silently lost, so callers treat this as
// fatal for the affected admission.
type PersistenceError struct {
	Op       string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("ledger: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is a PersistenceError.
// Uses errors.As to handle wrapped errors.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
