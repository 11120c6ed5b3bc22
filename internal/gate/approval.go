package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/veritrail/veritrail/internal/ledger"
)

// Decision is the state of an approval ticket.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Summary is the record digest sent with an approval request. It carries
// commitments, not payloads: the approver sees what is being authorized
// without the gate shipping the full ranked results.
type Summary struct {
	RecordID       string `json:"record_id"`
	SolverIdentity string `json:"solver_identity"`
	LifecyclePhase string `json:"lifecycle_phase"`
	Category       string `json:"category"`
	InputHash      string `json:"input_hash"`
	Criticality    int    `json:"criticality"`
}

// ApprovalChannel is the human-decision collaborator contract. How the
// decision is actually made - review queue, chat bot, signature ceremony -
// is outside this core.
type ApprovalChannel interface {
	// RequestApproval submits a record for review and returns a ticket.
	RequestApproval(ctx context.Context, summary Summary, criticality int) (ticket string, err error)

	// PollDecision reports the current state of a ticket. The reason is
	// meaningful for rejections.
	PollDecision(ctx context.Context, ticket string) (Decision, string, error)
}

// StoreChannel is an ApprovalChannel backed by the ledger database's
// pending_approvals table: operators decide tickets with the `decide` CLI
// command. It keeps escalation operable on a single node while staying
// behind the channel contract.
type StoreChannel struct {
	store *ledger.Store
}

// NewStoreChannel creates a store-backed approval channel.
func NewStoreChannel(store *ledger.Store) *StoreChannel {
	return &StoreChannel{store: store}
}

// RequestApproval issues a time-sortable UUIDv7 ticket. The gate persists
// the pending record under this ticket; the channel itself holds no state.
func (c *StoreChannel) RequestApproval(ctx context.Context, summary Summary, criticality int) (string, error) {
	return uuid.Must(uuid.NewV7()).String(), nil
}

// PollDecision reads the operator's decision for a ticket.
func (c *StoreChannel) PollDecision(ctx context.Context, ticket string) (Decision, string, error) {
	decision, reason, err := c.store.GetDecision(ctx, ticket)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("poll decision: unknown ticket %s", ticket)
	}
	if err != nil {
		return "", "", err
	}

	switch decision {
	case ledger.DecisionApproved:
		return DecisionApproved, reason, nil
	case ledger.DecisionRejected:
		return DecisionRejected, reason, nil
	default:
		return DecisionPending, "", nil
	}
}
