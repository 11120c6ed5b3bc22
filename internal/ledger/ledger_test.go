package ledger

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritrail/veritrail/internal/record"
)

type seqIDs struct{ n int }

func (g *seqIDs) Generate() string {
	g.n++
	return fmt.Sprintf("rec-%04d", g.n)
}

// newFixture returns a store in a temp dir and a deterministic builder.
func newFixture(t *testing.T, opts Options) (*Store, *record.Builder) {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, newTestBuilder(t)
}

func newTestBuilder(t *testing.T) *record.Builder {
	t.Helper()

	signer, err := record.SignerFromSeed([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	b := record.NewBuilder(signer)
	b.IDs = &seqIDs{}
	b.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

// makeTuple builds a signed tuple whose inputs vary with n.
func makeTuple(t *testing.T, b *record.Builder, n int) *record.Tuple {
	t.Helper()

	tuple, err := b.Build(
		record.Object{"task": record.String("ranking"), "batch": record.Int(n)},
		record.Array{record.Object{"candidate": record.String("alpha"), "rank": record.Int(1)}},
		record.Meta{
			SolverIdentity: "solver-7",
			LifecyclePhase: "execution",
			Criticality:    2,
			Category:       "ranking",
			RecordType:     "decision",
		},
	)
	require.NoError(t, err)
	return tuple
}
