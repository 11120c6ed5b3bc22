package record

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_DeterministicAcrossInvocations(t *testing.T) {
	inputs := Object{"task": String("ranking"), "depth": Int(4)}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := Seed(inputs, ts)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Seed(inputs, ts)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSeed_TruncatesSubsecondPrecision(t *testing.T) {
	inputs := Object{"task": String("ranking")}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	whole, err := Seed(inputs, base)
	require.NoError(t, err)
	nanos, err := Seed(inputs, base.Add(999*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, whole, nanos)

	nextSecond, err := Seed(inputs, base.Add(time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, whole, nextSecond)
}

func TestSeed_SensitiveToInputs(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := Seed(Object{"k": Int(1)}, ts)
	require.NoError(t, err)
	b, err := Seed(Object{"k": Int(2)}, ts)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSeed_FirstEightDigestBytes(t *testing.T) {
	inputs := Object{"task": String("ranking")}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	canonical, err := MarshalCanonical(inputs)
	require.NoError(t, err)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts.Unix()))
	sum := sha256.Sum256(append(canonical, tsBuf[:]...))

	seed, err := Seed(inputs, ts)
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian.Uint64(sum[:8]), seed)
}

func TestInputHash_IndependentOfInsertionOrder(t *testing.T) {
	a := Object{}
	a["x"] = Int(1)
	a["y"] = Int(2)

	b := Object{}
	b["y"] = Int(2)
	b["x"] = Int(1)

	ha, err := InputHash(a)
	require.NoError(t, err)
	hb, err := InputHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHashWithDomain_SeparatesDomains(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t,
		HashWithDomain(DomainMerkleLeaf, data),
		HashWithDomain(DomainMerkleNode, data))
}

func TestHashWithDomain_NullSeparatorBlocksBoundaryShift(t *testing.T) {
	// Without the separator, domain "ab" + data "c" and domain "a" + data
	// "bc" would collide.
	assert.NotEqual(t,
		HashWithDomain("ab", []byte("c")),
		HashWithDomain("a", []byte("bc")))
}

func TestSignaturePayload_FieldBoundaries(t *testing.T) {
	a := SignaturePayload(7, "ab", "c", "r", "phase", 100)
	b := SignaturePayload(7, "a", "bc", "r", "phase", 100)
	assert.NotEqual(t, a, b)
}

func TestSignaturePayload_Deterministic(t *testing.T) {
	a := SignaturePayload(7, "ih", "solver", "rh", "phase", 100)
	b := SignaturePayload(7, "ih", "solver", "rh", "phase", 100)
	assert.Equal(t, a, b)
}
