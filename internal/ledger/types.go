package ledger

import (
	"github.com/veritrail/veritrail/internal/record"
)

// Approval records the external decision that admitted an escalated record.
type Approval struct {
	Ticket   string `json:"ticket"`
	Decision string `json:"decision"`
}

// Entry wraps a governance tuple with its committed position and chain hash.
// Owned exclusively by the store; never mutated after append.
type Entry struct {
	Seq       int64        `json:"sequence_index"`
	Tuple     record.Tuple `json:"record"`
	Approval  *Approval    `json:"approval,omitempty"`
	ChainHash string       `json:"chain_hash"`
}

// Batch is a sealed, fixed-size window of consecutive entries with its
// Merkle root. Immutable once sealed.
type Batch struct {
	Index    int64  `json:"batch_index"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
	Root     string `json:"root_hash"`
	SealedAt int64  `json:"sealed_ts"`
}

// Rejection is a diagnostics-only row in the non-chained rejection log.
type Rejection struct {
	ID         int64  `json:"id"`
	RecordID   string `json:"record_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	RejectedAt int64  `json:"rejected_ts"`
}

// Pending is a persisted admission awaiting an external decision.
type Pending struct {
	Ticket      string       `json:"ticket_id"`
	Tuple       record.Tuple `json:"record"`
	Criticality int          `json:"criticality"`
	RequestedAt int64        `json:"requested_ts"`
	Decision    string       `json:"decision"`
	Reason      string       `json:"reason"`
}

// ProofStep is one level of a Merkle inclusion proof: the sibling hash and
// whether it sits to the right of the running hash.
type ProofStep struct {
	Hash  string `json:"hash"`
	Right bool   `json:"right"`
}

// InclusionProof proves an entry's membership in a sealed batch.
type InclusionProof struct {
	Batch     Batch       `json:"batch"`
	LeafIndex int64       `json:"leaf_index"`
	Steps     []ProofStep `json:"steps"`
}
