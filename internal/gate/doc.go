// Package gate implements the admission state machine that stands between
// the record builder and the ledger:
//
//	RECEIVED → SIGNATURE_VERIFIED → LIFECYCLE_CHECKED →
//	    {AWAITING_APPROVAL | APPROVED} → APPENDED | REJECTED
//
// Validation steps run concurrently across admissions; only the final
// ledger commit is serialized, inside the store. A record whose
// criticality meets the oversight threshold is escalated to the external
// approval channel and suspended - per record, never gate-wide - with its
// pending state persisted so a restart resumes polling. Approval waits are
// bounded by a timeout measured on the monotonic clock and resolve
// fail-closed to rejection.
//
// Rejected records never reach the ledger; they are recorded in the
// non-chained rejection log with a reason code.
package gate
