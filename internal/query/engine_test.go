package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/query"
	"github.com/veritrail/veritrail/internal/record"
	"github.com/veritrail/veritrail/internal/testutil"
)

// newEngineFixture appends tuples with the given criticalities and
// returns the store, engine, and builder.
func newEngineFixture(t *testing.T, batchSize int64, criticalities ...int) (*ledger.Store, *query.Engine, *record.Builder) {
	t.Helper()

	store := testutil.OpenStore(t, ledger.Options{BatchSize: batchSize})
	builder := testutil.Builder(t, testutil.NewManualClock(testutil.FixedTime))

	ctx := context.Background()
	for i, c := range criticalities {
		_, err := store.Append(ctx, testutil.Tuple(t, builder, i, c), nil)
		require.NoError(t, err)
	}

	return store, query.New(store), builder
}

func entrySeqs(page *query.Page) []int64 {
	seqs := make([]int64, 0, len(page.Entries))
	for _, ve := range page.Entries {
		seqs = append(seqs, ve.Entry.Seq)
	}
	return seqs
}

func TestRun_ReturnsAllInAscendingOrder(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 1, 1, 1, 1)

	page, err := engine.Run(context.Background(), query.Filter{}, "", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(4), page.SnapshotSeq)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, entrySeqs(page))
	assert.Empty(t, page.NextToken)
}

func TestRun_EmptyLedger(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024)

	page, err := engine.Run(context.Background(), query.Filter{}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), page.SnapshotSeq)
	assert.Empty(t, page.Entries)
	assert.Empty(t, page.NextToken)
}

func TestRun_FilterByCriticality(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 2, 1, 2)

	two := 2
	page, err := engine.Run(context.Background(), query.Filter{Criticality: &two}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, entrySeqs(page))
}

func TestRun_FilterByPhaseAndCategory(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 1)
	ctx := context.Background()

	page, err := engine.Run(ctx, query.Filter{LifecyclePhase: "execution", Category: "ranking"}, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)

	page, err = engine.Run(ctx, query.Filter{LifecyclePhase: "design"}, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestRun_TimeRangeIsInclusive(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 1)
	ctx := context.Background()

	at := testutil.FixedTime
	page, err := engine.Run(ctx, query.Filter{From: &at, To: &at}, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)

	before := at.Add(-time.Second)
	page, err = engine.Run(ctx, query.Filter{To: &before}, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestRun_Pagination(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 1, 1, 1, 1)
	ctx := context.Background()

	first, err := engine.Run(ctx, query.Filter{}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, entrySeqs(first))
	require.NotEmpty(t, first.NextToken)

	second, err := engine.Run(ctx, query.Filter{}, first.NextToken, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, entrySeqs(second))
	assert.Equal(t, first.SnapshotSeq, second.SnapshotSeq)
	require.NotEmpty(t, second.NextToken)

	third, err := engine.Run(ctx, query.Filter{}, second.NextToken, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, entrySeqs(third))
	assert.Empty(t, third.NextToken)
}

func TestRun_SnapshotExcludesLaterAppends(t *testing.T) {
	store, engine, builder := newEngineFixture(t, 1024, 1, 1, 1)
	ctx := context.Background()

	first, err := engine.Run(ctx, query.Filter{}, "", 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), first.SnapshotSeq)
	require.NotEmpty(t, first.NextToken)

	// Appends after the snapshot must not leak into later pages.
	for i := 3; i < 6; i++ {
		_, err := store.Append(ctx, testutil.Tuple(t, builder, i, 1), nil)
		require.NoError(t, err)
	}

	second, err := engine.Run(ctx, query.Filter{}, first.NextToken, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, entrySeqs(second))
	assert.Empty(t, second.NextToken)
}

func TestRun_IdenticalQueriesIdenticalBytes(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 2, 3)
	ctx := context.Background()

	first, err := engine.Run(ctx, query.Filter{}, "", 0)
	require.NoError(t, err)
	second, err := engine.Run(ctx, query.Filter{}, "", 0)
	require.NoError(t, err)

	a, err := first.CanonicalJSON()
	require.NoError(t, err)
	b, err := second.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_InvalidQueries(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1)
	ctx := context.Background()

	_, err := engine.Run(ctx, query.Filter{}, "", -1)
	assert.True(t, query.IsInvalidQuery(err))

	from := testutil.FixedTime
	to := from.Add(-time.Hour)
	_, err = engine.Run(ctx, query.Filter{From: &from, To: &to}, "", 0)
	assert.True(t, query.IsInvalidQuery(err))

	_, err = engine.Run(ctx, query.Filter{}, "garbage-token", 0)
	assert.True(t, query.IsInvalidQuery(err))
}

func TestRun_ProofKinds(t *testing.T) {
	store, engine, _ := newEngineFixture(t, 4, 1, 1, 1, 1, 1)
	ctx := context.Background()

	page, err := engine.Run(ctx, query.Filter{}, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 5)

	// The first window is sealed: Merkle proofs that verify.
	for _, ve := range page.Entries[:4] {
		require.Equal(t, query.ProofMerkle, ve.Proof.Kind, "seq %d", ve.Entry.Seq)
		entryBytes, err := ledger.EntryBytes(ve.Entry)
		require.NoError(t, err)
		assert.True(t, ledger.VerifyProof(entryBytes, ve.Proof.Merkle.Steps, ve.Proof.Merkle.Batch.Root))
	}

	// Seq 4 is unsealed: chain segment anchored on its predecessor.
	last := page.Entries[4]
	require.Equal(t, query.ProofChainSegment, last.Proof.Kind)
	prev, err := store.Read(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, prev.ChainHash, last.Proof.Chain.PrevChainHash)
	assert.Equal(t, last.Entry.ChainHash, last.Proof.Chain.ChainHash)
}

func TestRun_GenesisChainSegmentUsesZeroHash(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1)

	page, err := engine.Run(context.Background(), query.Filter{}, "", 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	proof := page.Entries[0].Proof
	require.Equal(t, query.ProofChainSegment, proof.Kind)
	assert.Equal(t, ledger.ZeroChainHash(), proof.Chain.PrevChainHash)
}

func TestGet_BySequence(t *testing.T) {
	_, engine, _ := newEngineFixture(t, 1024, 1, 2)
	ctx := context.Background()

	ve, err := engine.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ve.Entry.Seq)
	assert.Equal(t, query.ProofChainSegment, ve.Proof.Kind)

	_, err = engine.Get(ctx, 42)
	assert.True(t, query.IsNotFound(err))
}
