package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/veritrail/veritrail/internal/record"
)

// Decision values stored in pending_approvals.decision.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// SavePending persists an escalated admission so a process restart resumes
// polling instead of losing the in-flight approval.
func (s *Store) SavePending(ctx context.Context, ticket string, t *record.Tuple, requestedAt int64) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("save pending: marshal tuple: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_approvals (ticket_id, record, criticality, requested_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO NOTHING
	`, ticket, string(payload), t.Criticality, requestedAt)
	if err != nil {
		return fmt.Errorf("save pending: %w", err)
	}
	return nil
}

// PendingList returns all pending-approval rows, oldest first.
func (s *Store) PendingList(ctx context.Context) ([]Pending, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticket_id, record, criticality, requested_ts, decision, reason
		FROM pending_approvals
		ORDER BY requested_ts ASC, ticket_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	pending := []Pending{}
	for rows.Next() {
		var (
			p       Pending
			payload string
		)
		if err := rows.Scan(&p.Ticket, &payload, &p.Criticality, &p.RequestedAt, &p.Decision, &p.Reason); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &p.Tuple); err != nil {
			return nil, fmt.Errorf("decode pending record for ticket %s: %w", p.Ticket, err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return pending, nil
}

// SetDecision records an operator decision for a ticket. Only a currently
// pending ticket can be decided; deciding twice is an error.
func (s *Store) SetDecision(ctx context.Context, ticket, decision, reason string) error {
	if decision != DecisionApproved && decision != DecisionRejected {
		return fmt.Errorf("set decision: invalid decision %q", decision)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_approvals
		SET decision = ?, reason = ?
		WHERE ticket_id = ? AND decision = ?
	`, decision, reason, ticket, DecisionPending)
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set decision: ticket %s is not pending", ticket)
	}
	return nil
}

// GetDecision reads the decision state for a ticket.
// Returns sql.ErrNoRows for unknown tickets.
func (s *Store) GetDecision(ctx context.Context, ticket string) (decision, reason string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT decision, reason FROM pending_approvals WHERE ticket_id = ?
	`, ticket).Scan(&decision, &reason)
	if err == sql.ErrNoRows {
		return "", "", err
	}
	if err != nil {
		return "", "", fmt.Errorf("get decision: %w", err)
	}
	return decision, reason, nil
}

// DeletePending removes a resolved ticket.
func (s *Store) DeletePending(ctx context.Context, ticket string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_approvals WHERE ticket_id = ?`, ticket); err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}
	return nil
}

// LogRejection appends to the non-chained rejection log. Rejected records
// are never written to the ledger itself.
func (s *Store) LogRejection(ctx context.Context, recordID, code, reason string, rejectedAt int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rejections (record_id, code, reason, rejected_ts)
		VALUES (?, ?, ?, ?)
	`, recordID, code, reason, rejectedAt)
	if err != nil {
		return fmt.Errorf("log rejection: %w", err)
	}
	return nil
}

// Rejections returns the rejection log, oldest first.
func (s *Store) Rejections(ctx context.Context) ([]Rejection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, code, reason, rejected_ts
		FROM rejections
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rejections: %w", err)
	}
	defer rows.Close()

	rejections := []Rejection{}
	for rows.Next() {
		var r Rejection
		if err := rows.Scan(&r.ID, &r.RecordID, &r.Code, &r.Reason, &r.RejectedAt); err != nil {
			return nil, fmt.Errorf("scan rejection: %w", err)
		}
		rejections = append(rejections, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejections: %w", err)
	}
	return rejections, nil
}
