// Package testutil provides deterministic test collaborators: a manual
// clock, a sequential ID generator, a scripted approval channel, and
// fixture builders for signed tuples and temporary stores.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/record"
)

// SeqGenerator issues sequential record IDs ("rec-0001", "rec-0002", ...)
// so fixtures and golden files stay stable across runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SeqGenerator struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next sequential ID.
func (g *SeqGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("rec-%04d", g.n)
}

// FixedTime is the pinned fixture timestamp: 2026-01-02T03:04:05Z.
var FixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Signer returns a deterministic test signer derived from a fixed seed.
func Signer(t *testing.T) record.Signer {
	t.Helper()
	signer, err := record.SignerFromSeed([]byte("veritrail-test-signer-seed-32bb!"))
	require.NoError(t, err)
	return signer
}

// Builder returns a record builder with a pinned clock, sequential IDs,
// and the deterministic test signer. Identical calls produce identical
// tuples.
func Builder(t *testing.T, clock *ManualClock) *record.Builder {
	t.Helper()
	b := record.NewBuilder(Signer(t))
	b.IDs = &SeqGenerator{}
	b.Now = clock.Now
	return b
}

// Tuple builds one signed fixture tuple with the given criticality. The
// inputs vary with n so consecutive tuples hash differently.
func Tuple(t *testing.T, b *record.Builder, n, criticality int) *record.Tuple {
	t.Helper()
	tuple, err := b.Build(
		record.Object{
			"task":  record.String("ranking"),
			"batch": record.Int(n),
		},
		record.Array{
			record.Object{"candidate": record.String("alpha"), "rank": record.Int(1)},
			record.Object{"candidate": record.String("beta"), "rank": record.Int(2)},
		},
		record.Meta{
			SolverIdentity: "solver-7",
			LifecyclePhase: "execution",
			Criticality:    criticality,
			Category:       "ranking",
			RecordType:     "decision",
		},
	)
	require.NoError(t, err)
	return tuple
}

// OpenStore opens a ledger store in a per-test temporary directory and
// closes it on cleanup.
func OpenStore(t *testing.T, opts ledger.Options) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}
