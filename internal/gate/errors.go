package gate

import (
	"errors"
	"fmt"
)

// AdmissionCode categorizes admission failures.
type AdmissionCode string

const (
	// CodeInvalidSignature indicates the tuple's signature did not verify
	// against its claimed signer key.
	CodeInvalidSignature AdmissionCode = "INVALID_SIGNATURE"

	// CodeLifecycleClosed indicates the tuple's lifecycle phase is not open
	// for this ledger partition.
	CodeLifecycleClosed AdmissionCode = "LIFECYCLE_CLOSED"

	// CodeApprovalTimeout indicates the approval wait expired; the gate
	// resolves fail-closed.
	CodeApprovalTimeout AdmissionCode = "APPROVAL_TIMEOUT"

	// CodeApprovalRejected indicates the external decision was a rejection.
	CodeApprovalRejected AdmissionCode = "APPROVAL_REJECTED"

	// CodeAlreadyEscalated indicates a withdrawal arrived after escalation;
	// withdrawal must go through the approval channel from that point.
	CodeAlreadyEscalated AdmissionCode = "ALREADY_ESCALATED"
)

// AdmissionError terminates an admission. Rejection-class codes are also
// recorded in the ledger's rejection log - never silently dropped, never
// written to the chain.
type AdmissionError struct {
	Code     AdmissionCode
	Message  string
	RecordID string
	Ticket   string
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	switch {
	case e.RecordID != "" && e.Ticket != "":
		return fmt.Sprintf("%s: %s (record=%s, ticket=%s)", e.Code, e.Message, e.RecordID, e.Ticket)
	case e.RecordID != "":
		return fmt.Sprintf("%s: %s (record=%s)", e.Code, e.Message, e.RecordID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsInvalidSignature reports whether err is an AdmissionError with
// CodeInvalidSignature. Uses errors.As to handle wrapped errors.
func IsInvalidSignature(err error) bool {
	return hasCode(err, CodeInvalidSignature)
}

// IsLifecycleClosed reports whether err carries CodeLifecycleClosed.
func IsLifecycleClosed(err error) bool {
	return hasCode(err, CodeLifecycleClosed)
}

// IsApprovalTimeout reports whether err carries CodeApprovalTimeout.
func IsApprovalTimeout(err error) bool {
	return hasCode(err, CodeApprovalTimeout)
}

// IsApprovalRejected reports whether err carries CodeApprovalRejected.
func IsApprovalRejected(err error) bool {
	return hasCode(err, CodeApprovalRejected)
}

func hasCode(err error, code AdmissionCode) bool {
	var ae *AdmissionError
	return errors.As(err, &ae) && ae.Code == code
}
