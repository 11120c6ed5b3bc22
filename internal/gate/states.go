package gate

// State is an admission's position in the gate's state machine.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateSignatureVerified State = "SIGNATURE_VERIFIED"
	StateLifecycleChecked  State = "LIFECYCLE_CHECKED"
	StateAwaitingApproval  State = "AWAITING_APPROVAL"
	StateApproved          State = "APPROVED"
	StateAppended          State = "APPENDED"
	StateRejected          State = "REJECTED"
)
