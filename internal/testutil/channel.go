package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/veritrail/veritrail/internal/gate"
)

// scripted holds one ticket's scripted outcome.
type scripted struct {
	decision gate.Decision
	reason   string
}

// ScriptedChannel is an approval channel whose decisions tests control
// directly. Tickets are sequential ("ticket-0001"); undecided tickets
// poll as pending.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedChannel struct {
	mu        sync.Mutex
	n         int
	decisions map[string]scripted

	// RequestErr, when set, makes every RequestApproval call fail.
	RequestErr error
}

// NewScriptedChannel creates an empty scripted channel.
func NewScriptedChannel() *ScriptedChannel {
	return &ScriptedChannel{decisions: make(map[string]scripted)}
}

// RequestApproval issues the next sequential ticket.
func (c *ScriptedChannel) RequestApproval(ctx context.Context, summary gate.Summary, criticality int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.RequestErr != nil {
		return "", c.RequestErr
	}
	c.n++
	return fmt.Sprintf("ticket-%04d", c.n), nil
}

// PollDecision reports the scripted decision, or pending when none is set.
func (c *ScriptedChannel) PollDecision(ctx context.Context, ticket string) (gate.Decision, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.decisions[ticket]; ok {
		return s.decision, s.reason, nil
	}
	return gate.DecisionPending, "", nil
}

// Decide scripts the outcome for a ticket.
func (c *ScriptedChannel) Decide(ticket string, decision gate.Decision, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions[ticket] = scripted{decision: decision, reason: reason}
}
