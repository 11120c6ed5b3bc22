package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for domain-separated hashing. Version suffix enables
// future algorithm migration. Input and result hashes are intentionally
// plain SHA-256 over canonical bytes: they are the public commitments the
// external solver reproduces, so they carry no private domain prefix.
const (
	DomainChain      = "veritrail/chain/v1"
	DomainMerkleLeaf = "veritrail/leaf/v1"
	DomainMerkleNode = "veritrail/node/v1"
)

// HashWithDomain computes SHA-256 over (domain ‖ 0x00 ‖ part0 ‖ part1 ‖ ...).
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, parts ...[]byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// InputHash computes the hex SHA-256 of the canonical serialization of the
// solver inputs.
func InputHash(inputs Object) (string, error) {
	canonical, err := MarshalCanonical(inputs)
	if err != nil {
		return "", fmt.Errorf("input hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ResultHash computes the hex SHA-256 of the canonical serialization of the
// ranked result sequence.
func ResultHash(results Array) (string, error) {
	canonical, err := MarshalCanonical(results)
	if err != nil {
		return "", fmt.Errorf("result hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Seed derives the deterministic 64-bit seed: the first 64 bits of
// SHA-256(canonical(inputs) ‖ timestamp). The timestamp is truncated to
// whole seconds and encoded as a big-endian int64, so identical inputs at
// an identical truncated timestamp always reproduce the same seed.
func Seed(inputs Object, ts time.Time) (uint64, error) {
	canonical, err := MarshalCanonical(inputs)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts.Truncate(time.Second).Unix()))

	h := sha256.New()
	h.Write(canonical)
	h.Write(tsBuf[:])
	sum := h.Sum(nil)

	return binary.BigEndian.Uint64(sum[:8]), nil
}

// SignaturePayload computes the digest the signer binds: SHA-256 over
// (seed ‖ input_hash ‖ solver_identity ‖ result_hash ‖ lifecycle_phase ‖
// timestamp). Fields are joined with a null separator so adjacent fields
// cannot be reparsed across boundaries.
func SignaturePayload(seed uint64, inputHash, solverIdentity, resultHash, lifecyclePhase string, timestamp int64) []byte {
	var seedBuf, tsBuf [8]byte
	binary.BigEndian.PutUint64(seedBuf[:], seed)
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp))

	h := sha256.New()
	h.Write(seedBuf[:])
	h.Write([]byte{0x00})
	h.Write([]byte(inputHash))
	h.Write([]byte{0x00})
	h.Write([]byte(solverIdentity))
	h.Write([]byte{0x00})
	h.Write([]byte(resultHash))
	h.Write([]byte{0x00})
	h.Write([]byte(lifecyclePhase))
	h.Write([]byte{0x00})
	h.Write(tsBuf[:])
	return h.Sum(nil)
}
