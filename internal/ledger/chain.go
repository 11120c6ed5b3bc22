package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/veritrail/veritrail/internal/record"
)

// zeroChain is chain_hash[-1]: 32 zero bytes.
var zeroChain = make([]byte, 32)

// ZeroChainHash returns the hex form of the genesis predecessor hash.
func ZeroChainHash() string {
	return hex.EncodeToString(zeroChain)
}

// EntryBytes returns the canonical serialization of an entry for chain and
// Merkle hashing. The entry's own chain hash is excluded - it would be
// self-referential - but the approval decision is included, so a decision
// cannot be rewritten after commit without breaking the chain.
func EntryBytes(e Entry) ([]byte, error) {
	obj := record.Object{
		"sequence_index": record.Int(e.Seq),
		"record":         e.Tuple.CanonicalMap(),
	}
	if e.Approval != nil {
		obj["approval"] = record.Object{
			"ticket":   record.String(e.Approval.Ticket),
			"decision": record.String(e.Approval.Decision),
		}
	}

	b, err := record.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("serialize entry %d: %w", e.Seq, err)
	}
	return b, nil
}

// NextChainHash computes chain_hash[i] from the serialized current entry,
// the serialized previous entry, and the previous chain hash:
//
//	chain_hash[i] = H(domain ‖ serialize(entry[i]) ‖ serialize(entry[i-1]) ‖ chain_hash[i-1])
//
// Folding in both the previous serialization and the previous chain hash
// means a tampered predecessor is caught even where its stored chain hash
// has been recomputed to match.
// For the genesis entry pass nil prevBytes and nil prevChain.
func NextChainHash(curBytes, prevBytes, prevChain []byte) string {
	if prevChain == nil {
		prevChain = zeroChain
	}
	return hex.EncodeToString(record.HashWithDomain(record.DomainChain, curBytes, prevBytes, prevChain))
}
