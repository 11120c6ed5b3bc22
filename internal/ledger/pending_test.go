package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_SaveAndList(t *testing.T) {
	store, b := newFixture(t, Options{})
	ctx := context.Background()

	first := makeTuple(t, b, 0)
	second := makeTuple(t, b, 1)
	require.NoError(t, store.SavePending(ctx, "ticket-1", first, 100))
	require.NoError(t, store.SavePending(ctx, "ticket-2", second, 200))

	pending, err := store.PendingList(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	assert.Equal(t, "ticket-1", pending[0].Ticket)
	assert.Equal(t, first.ID, pending[0].Tuple.ID)
	assert.Equal(t, int64(100), pending[0].RequestedAt)
	assert.Equal(t, DecisionPending, pending[0].Decision)

	// The persisted tuple round-trips intact, signature included.
	assert.Equal(t, *first, pending[0].Tuple)
}

func TestPending_SaveIsIdempotentPerTicket(t *testing.T) {
	store, b := newFixture(t, Options{})
	ctx := context.Background()

	tuple := makeTuple(t, b, 0)
	require.NoError(t, store.SavePending(ctx, "ticket-1", tuple, 100))
	require.NoError(t, store.SavePending(ctx, "ticket-1", tuple, 999))

	pending, err := store.PendingList(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(100), pending[0].RequestedAt)
}

func TestSetDecision_OnlyOnce(t *testing.T) {
	store, b := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.SavePending(ctx, "ticket-1", makeTuple(t, b, 0), 100))
	require.NoError(t, store.SetDecision(ctx, "ticket-1", DecisionApproved, ""))

	decision, _, err := store.GetDecision(ctx, "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, decision)

	// A decided ticket cannot be re-decided.
	assert.Error(t, store.SetDecision(ctx, "ticket-1", DecisionRejected, "changed my mind"))
}

func TestSetDecision_ValidatesInputs(t *testing.T) {
	store, b := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.SavePending(ctx, "ticket-1", makeTuple(t, b, 0), 100))

	assert.Error(t, store.SetDecision(ctx, "ticket-1", "maybe", ""))
	assert.Error(t, store.SetDecision(ctx, "unknown-ticket", DecisionApproved, ""))
}

func TestGetDecision_UnknownTicket(t *testing.T) {
	store, _ := newFixture(t, Options{})

	_, _, err := store.GetDecision(context.Background(), "unknown")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDeletePending_RemovesTicket(t *testing.T) {
	store, b := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.SavePending(ctx, "ticket-1", makeTuple(t, b, 0), 100))
	require.NoError(t, store.DeletePending(ctx, "ticket-1"))

	pending, err := store.PendingList(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejections_LogAndList(t *testing.T) {
	store, _ := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, store.LogRejection(ctx, "rec-1", "INVALID_SIGNATURE", "bad signature", 100))
	require.NoError(t, store.LogRejection(ctx, "rec-2", "APPROVAL_TIMEOUT", "no decision within 72h", 200))

	rejections, err := store.Rejections(ctx)
	require.NoError(t, err)
	require.Len(t, rejections, 2)
	assert.Equal(t, "rec-1", rejections[0].RecordID)
	assert.Equal(t, "INVALID_SIGNATURE", rejections[0].Code)
	assert.Equal(t, "APPROVAL_TIMEOUT", rejections[1].Code)

	// Rejections never touch the chained ledger.
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
