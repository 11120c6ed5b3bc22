package ledger

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/veritrail/veritrail/internal/record"
)

// leafHash hashes an entry serialization as a Merkle leaf. Leaf and node
// hashes use distinct domains so an interior node can never be presented
// as a leaf.
func leafHash(entryBytes []byte) []byte {
	return record.HashWithDomain(record.DomainMerkleLeaf, entryBytes)
}

func nodeHash(left, right []byte) []byte {
	return record.HashWithDomain(record.DomainMerkleNode, left, right)
}

// merkleRoot folds leaves into a root. An unpaired node at the end of a
// level is promoted unchanged rather than duplicated, so proofs stay
// unambiguous for any window size.
func merkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return record.HashWithDomain(record.DomainMerkleNode)
	}

	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// merkleProof builds the sibling path for the leaf at idx.
func merkleProof(leaves [][]byte, idx int) []ProofStep {
	steps := []ProofStep{}

	level := leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				if i == idx || i+1 == idx {
					if i == idx {
						steps = append(steps, ProofStep{Hash: hex.EncodeToString(level[i+1]), Right: true})
					} else {
						steps = append(steps, ProofStep{Hash: hex.EncodeToString(level[i]), Right: false})
					}
				}
				next = append(next, nodeHash(level[i], level[i+1]))
			} else {
				// Promoted node: no sibling, no step.
				next = append(next, level[i])
			}
		}
		idx /= 2
		level = next
	}

	return steps
}

// RootOf recomputes a batch root from entry serializations, hashing each
// as a leaf. The offline verifier checks stored roots with it.
func RootOf(entryBytes [][]byte) string {
	leaves := make([][]byte, len(entryBytes))
	for i, b := range entryBytes {
		leaves[i] = leafHash(b)
	}
	return hex.EncodeToString(merkleRoot(leaves))
}

// VerifyProof checks a Merkle inclusion proof: hashing entryBytes as a
// leaf and folding in each sibling must reproduce the batch root. Flipping
// any bit of the serialization fails verification.
func VerifyProof(entryBytes []byte, steps []ProofStep, rootHex string) bool {
	cur := leafHash(entryBytes)

	for _, step := range steps {
		sibling, err := hex.DecodeString(step.Hash)
		if err != nil {
			return false
		}
		if step.Right {
			cur = nodeHash(cur, sibling)
		} else {
			cur = nodeHash(sibling, cur)
		}
	}

	return hex.EncodeToString(cur) == rootHex
}

// ProofFor builds the inclusion proof for the entry at seq within its
// sealed batch. Returns ErrNotSealed when no sealed window covers seq yet;
// unsealed entries are verified by chain segment instead.
func (s *Store) ProofFor(ctx context.Context, seq int64) (InclusionProof, error) {
	batch, ok, err := s.BatchFor(ctx, seq)
	if err != nil {
		return InclusionProof{}, err
	}
	if !ok {
		return InclusionProof{}, ErrNotSealed
	}

	entries, err := s.ReadRange(ctx, batch.FirstSeq, batch.LastSeq)
	if err != nil {
		return InclusionProof{}, err
	}
	if int64(len(entries)) != batch.LastSeq-batch.FirstSeq+1 {
		return InclusionProof{}, fmt.Errorf("batch %d window [%d,%d] is incomplete: %d entries",
			batch.Index, batch.FirstSeq, batch.LastSeq, len(entries))
	}

	leaves := make([][]byte, len(entries))
	for i, e := range entries {
		b, err := EntryBytes(e)
		if err != nil {
			return InclusionProof{}, err
		}
		leaves[i] = leafHash(b)
	}

	return InclusionProof{
		Batch:     batch,
		LeafIndex: seq - batch.FirstSeq,
		Steps:     merkleProof(leaves, int(seq-batch.FirstSeq)),
	}, nil
}
