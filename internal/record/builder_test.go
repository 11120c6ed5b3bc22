package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedIDs struct {
	id string
}

func (f fixedIDs) Generate() string { return f.id }

func testSigner(t *testing.T) *Ed25519Signer {
	t.Helper()
	signer, err := SignerFromSeed([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return signer
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder(testSigner(t))
	b.IDs = fixedIDs{id: "rec-fixed"}
	b.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 500000000, time.UTC) }
	return b
}

var testMeta = Meta{
	SolverIdentity: "solver-7",
	LifecyclePhase: "execution",
	Criticality:    2,
	Category:       "ranking",
	RecordType:     "decision",
}

func TestBuild_Deterministic(t *testing.T) {
	inputs := Object{"task": String("ranking"), "depth": Int(4)}
	results := Array{Object{"candidate": String("alpha"), "rank": Int(1)}}

	a, err := testBuilder(t).Build(inputs, results, testMeta)
	require.NoError(t, err)
	b, err := testBuilder(t).Build(inputs, results, testMeta)
	require.NoError(t, err)

	assert.Equal(t, a.Seed, b.Seed)
	assert.Equal(t, a.SeedHex, b.SeedHex)
	assert.Equal(t, a.InputHash, b.InputHash)
	assert.Equal(t, a.ResultHash, b.ResultHash)
	// ed25519 is deterministic and the payload excludes the record ID.
	assert.Equal(t, a.Signature, b.Signature)
}

func TestBuild_TruncatesTimestamp(t *testing.T) {
	tuple, err := testBuilder(t).Build(Object{"k": Int(1)}, nil, testMeta)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix(), tuple.Timestamp)
}

func TestBuild_SignatureVerifies(t *testing.T) {
	tuple, err := testBuilder(t).Build(Object{"k": Int(1)}, Array{Int(1)}, testMeta)
	require.NoError(t, err)
	assert.True(t, VerifyTuple(tuple))
}

func TestBuild_TamperedFieldFailsVerification(t *testing.T) {
	tuple, err := testBuilder(t).Build(Object{"k": Int(1)}, Array{Int(1)}, testMeta)
	require.NoError(t, err)

	tuple.SolverIdentity = "solver-8"
	assert.False(t, VerifyTuple(tuple))
}

func TestBuild_RequiresMetadata(t *testing.T) {
	cases := []struct {
		name string
		meta Meta
	}{
		{"missing solver identity", Meta{LifecyclePhase: "execution"}},
		{"missing lifecycle phase", Meta{SolverIdentity: "solver-7"}},
		{"negative criticality", Meta{SolverIdentity: "solver-7", LifecyclePhase: "execution", Criticality: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testBuilder(t).Build(Object{"k": Int(1)}, nil, tc.meta)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestBuild_RejectsNonCanonicalInputs(t *testing.T) {
	_, err := testBuilder(t).Build(Object{"k": Null{}}, nil, testMeta)
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}

func TestBuild_NilResultsBecomeEmptyArray(t *testing.T) {
	tuple, err := testBuilder(t).Build(Object{"k": Int(1)}, nil, testMeta)
	require.NoError(t, err)
	assert.NotNil(t, tuple.RankedResults)
	assert.Len(t, tuple.RankedResults, 0)
}

func TestTuple_JSONRoundTripPreservesSeed(t *testing.T) {
	// A seed above int64 max exercises the hex carrier.
	orig := &Tuple{
		ID:             "rec-1",
		Seed:           0xfedcba9876543210,
		SeedHex:        "fedcba9876543210",
		InputHash:      "aa",
		SolverIdentity: "solver-7",
		RankedResults:  Array{Int(1)},
		ResultHash:     "bb",
		LifecyclePhase: "execution",
		Criticality:    2,
		Timestamp:      1700000000,
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Tuple
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig.Seed, back.Seed)
	assert.Equal(t, orig.SeedHex, back.SeedHex)
	assert.Equal(t, orig.RankedResults, back.RankedResults)
}

func TestTuple_CanonicalBytesCarrySeedAsHex(t *testing.T) {
	tuple, err := testBuilder(t).Build(Object{"k": Int(1)}, nil, testMeta)
	require.NoError(t, err)

	b, err := tuple.CanonicalBytes()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"seed":"`+tuple.SeedHex+`"`)
}
