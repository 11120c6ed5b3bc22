package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veritrail/veritrail/internal/config"
	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/record"
)

// Outcome is the terminal (or suspended) result of an admission.
type Outcome struct {
	State  State
	Entry  *ledger.Entry // set when State == StateAppended
	Ticket string        // set when State == StateAwaitingApproval
}

// Resolution is the result of driving one pending ticket through Resolve.
type Resolution struct {
	Ticket   string
	RecordID string
	Outcome  Outcome
	Err      error
}

// escalation tracks an in-process approval wait. startedAt carries a
// monotonic clock reading, so the timeout resists wall-clock manipulation
// within a process lifetime.
type escalation struct {
	recordID  string
	startedAt time.Time
}

// Gate validates records and escalates those above the oversight threshold
// before handing them to the ledger. Safe for concurrent Submit calls; the
// only serialization is the store's append commit.
//
// Now is exported so tests can pin the clock.
type Gate struct {
	store   *ledger.Store
	policy  config.Policy
	channel ApprovalChannel

	// Now is the wall clock used for persisted timestamps and, via its
	// monotonic reading, for approval timeouts. Defaults to time.Now.
	Now func() time.Time

	mu        sync.Mutex
	escalated map[string]escalation // ticket -> escalation
}

// New creates a gate over a store, a policy, and an approval channel.
func New(store *ledger.Store, policy config.Policy, channel ApprovalChannel) *Gate {
	return &Gate{
		store:     store,
		policy:    policy,
		channel:   channel,
		Now:       time.Now,
		escalated: make(map[string]escalation),
	}
}

// Submit runs an admission through signature and lifecycle checks, then
// either appends it (below the oversight threshold) or escalates it and
// returns a ticket. The caller drives escalated admissions to completion
// with Resolve.
//
// Rejections return an *AdmissionError and are recorded in the rejection
// log; the returned Outcome carries StateRejected.
func (g *Gate) Submit(ctx context.Context, t *record.Tuple) (Outcome, error) {
	// RECEIVED → SIGNATURE_VERIFIED
	if !record.VerifyTuple(t) {
		return g.reject(ctx, t, CodeInvalidSignature, "signature does not verify against claimed signer key")
	}

	// → LIFECYCLE_CHECKED
	if !g.policy.PhaseOpen(t.LifecyclePhase) {
		return g.reject(ctx, t, CodeLifecycleClosed, fmt.Sprintf("lifecycle phase %q is not open for partition %q", t.LifecyclePhase, g.policy.Partition))
	}

	// → AWAITING_APPROVAL when criticality meets the threshold (inclusive).
	if g.policy.RequiresApproval(t.Criticality) {
		return g.escalate(ctx, t)
	}

	// → APPROVED → APPENDED
	entry, err := g.store.Append(ctx, t, nil)
	if err != nil {
		return Outcome{State: StateApproved}, err
	}
	return Outcome{State: StateAppended, Entry: &entry}, nil
}

// escalate suspends a record pending an external decision. Only this
// record waits; the gate keeps admitting others.
func (g *Gate) escalate(ctx context.Context, t *record.Tuple) (Outcome, error) {
	summary := Summary{
		RecordID:       t.ID,
		SolverIdentity: t.SolverIdentity,
		LifecyclePhase: t.LifecyclePhase,
		Category:       t.Category,
		InputHash:      t.InputHash,
		Criticality:    t.Criticality,
	}

	ticket, err := g.channel.RequestApproval(ctx, summary, t.Criticality)
	if err != nil {
		return Outcome{State: StateLifecycleChecked}, fmt.Errorf("request approval for record %s: %w", t.ID, err)
	}

	now := g.Now()
	if err := g.store.SavePending(ctx, ticket, t, now.Unix()); err != nil {
		return Outcome{State: StateLifecycleChecked}, err
	}

	g.mu.Lock()
	g.escalated[ticket] = escalation{recordID: t.ID, startedAt: now}
	g.mu.Unlock()

	return Outcome{State: StateAwaitingApproval, Ticket: ticket}, nil
}

// Resolve drives every persisted pending admission one step: polls the
// decision, applies the timeout, and appends or rejects accordingly.
// Call it periodically and once after restart - pending state is durable,
// so in-flight approvals survive the process.
func (g *Gate) Resolve(ctx context.Context) ([]Resolution, error) {
	pending, err := g.store.PendingList(ctx)
	if err != nil {
		return nil, err
	}

	resolutions := []Resolution{}
	for _, p := range pending {
		res := g.resolveOne(ctx, p)
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

func (g *Gate) resolveOne(ctx context.Context, p ledger.Pending) Resolution {
	res := Resolution{Ticket: p.Ticket, RecordID: p.Tuple.ID}

	decision, reason, err := g.channel.PollDecision(ctx, p.Ticket)
	if err != nil {
		res.Err = err
		res.Outcome = Outcome{State: StateAwaitingApproval, Ticket: p.Ticket}
		return res
	}

	switch decision {
	case DecisionApproved:
		entry, err := g.store.Append(ctx, &p.Tuple, &ledger.Approval{Ticket: p.Ticket, Decision: ledger.DecisionApproved})
		if err != nil {
			// Approved records must not be lost: keep the pending row so a
			// later Resolve retries the append.
			res.Err = err
			res.Outcome = Outcome{State: StateApproved, Ticket: p.Ticket}
			return res
		}
		if err := g.store.DeletePending(ctx, p.Ticket); err != nil {
			res.Err = err
		}
		g.forget(p.Ticket)
		res.Outcome = Outcome{State: StateAppended, Entry: &entry}
		return res

	case DecisionRejected:
		res.Outcome, res.Err = g.rejectPending(ctx, p, CodeApprovalRejected, reason)
		return res

	default: // still pending: enforce the timeout, fail-closed
		if g.elapsed(p) >= g.policy.ApprovalTimeout {
			res.Outcome, res.Err = g.rejectPending(ctx, p, CodeApprovalTimeout,
				fmt.Sprintf("no decision within %s", g.policy.ApprovalTimeout))
			return res
		}
		res.Outcome = Outcome{State: StateAwaitingApproval, Ticket: p.Ticket}
		return res
	}
}

// elapsed measures how long a ticket has been waiting. For escalations
// made by this process the monotonic reading in startedAt is used; after a
// restart only the persisted wall-clock request time remains.
func (g *Gate) elapsed(p ledger.Pending) time.Duration {
	g.mu.Lock()
	esc, ok := g.escalated[p.Ticket]
	g.mu.Unlock()

	if ok {
		return g.Now().Sub(esc.startedAt)
	}
	return g.Now().Sub(time.Unix(p.RequestedAt, 0))
}

// Withdraw cancels an admission before escalation. Once a record is
// awaiting approval, withdrawal must go through the approval channel as an
// explicit rejection; the gate refuses it here.
func (g *Gate) Withdraw(ctx context.Context, recordID string) error {
	g.mu.Lock()
	for ticket, esc := range g.escalated {
		if esc.recordID == recordID {
			g.mu.Unlock()
			return &AdmissionError{
				Code:     CodeAlreadyEscalated,
				Message:  "record is awaiting approval; withdraw via the approval channel",
				RecordID: recordID,
				Ticket:   ticket,
			}
		}
	}
	g.mu.Unlock()

	// A restart may have dropped the in-memory escalation map; the
	// persisted pending rows are authoritative.
	pending, err := g.store.PendingList(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.Tuple.ID == recordID {
			return &AdmissionError{
				Code:     CodeAlreadyEscalated,
				Message:  "record is awaiting approval; withdraw via the approval channel",
				RecordID: recordID,
				Ticket:   p.Ticket,
			}
		}
	}

	// Nothing escalated and nothing persisted: the admission never left
	// the validation path, so there is nothing to retract.
	return nil
}

// reject terminates a pre-escalation admission and records it in the
// non-chained rejection log.
func (g *Gate) reject(ctx context.Context, t *record.Tuple, code AdmissionCode, message string) (Outcome, error) {
	if err := g.store.LogRejection(ctx, t.ID, string(code), message, g.Now().Unix()); err != nil {
		return Outcome{State: StateRejected}, err
	}
	return Outcome{State: StateRejected}, &AdmissionError{Code: code, Message: message, RecordID: t.ID}
}

// rejectPending terminates an escalated admission.
func (g *Gate) rejectPending(ctx context.Context, p ledger.Pending, code AdmissionCode, message string) (Outcome, error) {
	if err := g.store.LogRejection(ctx, p.Tuple.ID, string(code), message, g.Now().Unix()); err != nil {
		return Outcome{State: StateAwaitingApproval, Ticket: p.Ticket}, err
	}
	if err := g.store.DeletePending(ctx, p.Ticket); err != nil {
		return Outcome{State: StateRejected}, err
	}
	g.forget(p.Ticket)
	return Outcome{State: StateRejected}, &AdmissionError{Code: code, Message: message, RecordID: p.Tuple.ID, Ticket: p.Ticket}
}

func (g *Gate) forget(ticket string) {
	g.mu.Lock()
	delete(g.escalated, ticket)
	g.mu.Unlock()
}
