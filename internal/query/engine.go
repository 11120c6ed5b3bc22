package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/veritrail/veritrail/internal/ledger"
	"github.com/veritrail/veritrail/internal/record"
)

// DefaultPageSize bounds a page when the caller passes zero.
const DefaultPageSize = 100

// ProofKind discriminates the verification artifact attached to an entry.
type ProofKind string

const (
	// ProofMerkle is an inclusion proof against a sealed batch root.
	ProofMerkle ProofKind = "merkle"

	// ProofChainSegment covers entries whose batch has not sealed yet: the
	// predecessor chain hash plus the entry's own, enough to recompute the
	// link locally.
	ProofChainSegment ProofKind = "chain_segment"
)

// ChainSegment is the fallback artifact for unsealed entries.
type ChainSegment struct {
	PrevChainHash string `json:"prev_chain_hash"`
	ChainHash     string `json:"chain_hash"`
}

// Proof is the verification artifact for one returned entry. Exactly one
// of Merkle and Chain is set, per Kind.
type Proof struct {
	Kind   ProofKind              `json:"kind"`
	Merkle *ledger.InclusionProof `json:"merkle,omitempty"`
	Chain  *ChainSegment          `json:"chain,omitempty"`
}

// VerifiedEntry pairs an entry with its proof. Every query result carries
// one; there is no unverifiable read path.
type VerifiedEntry struct {
	Entry ledger.Entry `json:"entry"`
	Proof Proof        `json:"proof"`
}

// Page is one page of a snapshot-consistent result set.
type Page struct {
	// SnapshotSeq is the tail sequence the result set is pinned to. Every
	// page of the same query reports the same value.
	SnapshotSeq int64 `json:"snapshot_seq"`

	Entries []VerifiedEntry `json:"entries"`

	// NextToken resumes the result set, or "" when it is exhausted.
	NextToken string `json:"next_token,omitempty"`
}

// Engine answers filtered reads over a ledger store. Results are in
// ascending sequence order, snapshot-consistent across pages, and
// identical for identical queries against an unchanged ledger.
type Engine struct {
	store *ledger.Store
}

// New creates a query engine over a store.
func New(store *ledger.Store) *Engine {
	return &Engine{store: store}
}

// Run executes one page of a filtered query. An empty token starts a new
// result set pinned to the current tail; a non-empty token resumes the
// result set it came from at the position it encodes.
func (e *Engine) Run(ctx context.Context, f Filter, token string, pageSize int) (*Page, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if pageSize < 0 {
		return nil, &Error{Code: CodeInvalidQuery, Message: fmt.Sprintf("page size must be non-negative, got %d", pageSize)}
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	var pos pageToken
	if token == "" {
		n, err := e.store.Len(ctx)
		if err != nil {
			return nil, err
		}
		pos = pageToken{SnapshotSeq: n - 1, AfterSeq: -1}
	} else {
		var err error
		pos, err = decodeToken(token)
		if err != nil {
			return nil, err
		}
	}

	page := &Page{SnapshotSeq: pos.SnapshotSeq, Entries: []VerifiedEntry{}}
	if pos.SnapshotSeq < 0 {
		// Empty ledger at snapshot time.
		return page, nil
	}

	clauses := []string{"seq > ?", "seq <= ?"}
	args := []any{pos.AfterSeq, pos.SnapshotSeq}
	fc, fa := f.whereClauses()
	clauses = append(clauses, fc...)
	args = append(args, fa...)

	q := ledger.EntrySelect() +
		" WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY seq ASC LIMIT ?"
	args = append(args, pageSize)

	rows, err := e.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	entries, err := ledger.CollectEntries(rows)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		proof, err := e.proofFor(ctx, entry)
		if err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, VerifiedEntry{Entry: entry, Proof: proof})
	}

	// A full page that has not reached the snapshot tail continues; the
	// filter may still skip everything after the last seq, in which case
	// the next page comes back empty with no token.
	if len(entries) == pageSize && entries[len(entries)-1].Seq < pos.SnapshotSeq {
		next, err := encodeToken(pageToken{SnapshotSeq: pos.SnapshotSeq, AfterSeq: entries[len(entries)-1].Seq})
		if err != nil {
			return nil, err
		}
		page.NextToken = next
	}

	return page, nil
}

// Get retrieves a single entry by sequence index with its proof.
func (e *Engine) Get(ctx context.Context, seq int64) (VerifiedEntry, error) {
	entry, err := e.store.Read(ctx, seq)
	if errors.Is(err, sql.ErrNoRows) {
		return VerifiedEntry{}, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no entry at sequence %d", seq)}
	}
	if err != nil {
		return VerifiedEntry{}, err
	}

	proof, err := e.proofFor(ctx, entry)
	if err != nil {
		return VerifiedEntry{}, err
	}
	return VerifiedEntry{Entry: entry, Proof: proof}, nil
}

// proofFor attaches the strongest available artifact: a Merkle proof when
// the entry's batch has sealed, a chain segment otherwise.
func (e *Engine) proofFor(ctx context.Context, entry ledger.Entry) (Proof, error) {
	mp, err := e.store.ProofFor(ctx, entry.Seq)
	if err == nil {
		return Proof{Kind: ProofMerkle, Merkle: &mp}, nil
	}
	if !errors.Is(err, ledger.ErrNotSealed) {
		return Proof{}, &Error{Code: CodeProofUnavailable, Message: fmt.Sprintf("build proof for sequence %d", entry.Seq), Err: err}
	}

	prev := ledger.ZeroChainHash()
	if entry.Seq > 0 {
		prevEntry, err := e.store.Read(ctx, entry.Seq-1)
		if err != nil {
			return Proof{}, &Error{Code: CodeProofUnavailable, Message: fmt.Sprintf("read predecessor of sequence %d", entry.Seq), Err: err}
		}
		prev = prevEntry.ChainHash
	}

	return Proof{Kind: ProofChainSegment, Chain: &ChainSegment{PrevChainHash: prev, ChainHash: entry.ChainHash}}, nil
}

// CanonicalJSON renders a page as canonical JSON. Byte-for-byte stable,
// so identical queries over an unchanged ledger produce identical output.
func (p *Page) CanonicalJSON() ([]byte, error) {
	entries := make(record.Array, 0, len(p.Entries))
	for _, ve := range p.Entries {
		obj := record.Object{
			"sequence_index": record.Int(ve.Entry.Seq),
			"record":         ve.Entry.Tuple.CanonicalMap(),
			"chain_hash":     record.String(ve.Entry.ChainHash),
			"proof":          proofObject(ve.Proof),
		}
		if ve.Entry.Approval != nil {
			obj["approval"] = record.Object{
				"ticket":   record.String(ve.Entry.Approval.Ticket),
				"decision": record.String(ve.Entry.Approval.Decision),
			}
		}
		entries = append(entries, obj)
	}

	obj := record.Object{
		"snapshot_seq": record.Int(p.SnapshotSeq),
		"entries":      entries,
	}
	if p.NextToken != "" {
		obj["next_token"] = record.String(p.NextToken)
	}
	return record.MarshalCanonical(obj)
}

func proofObject(p Proof) record.Object {
	obj := record.Object{"kind": record.String(p.Kind)}

	switch p.Kind {
	case ProofMerkle:
		steps := make(record.Array, 0, len(p.Merkle.Steps))
		for _, s := range p.Merkle.Steps {
			steps = append(steps, record.Object{
				"hash":  record.String(s.Hash),
				"right": record.Bool(s.Right),
			})
		}
		obj["batch_index"] = record.Int(p.Merkle.Batch.Index)
		obj["root"] = record.String(p.Merkle.Batch.Root)
		obj["leaf_index"] = record.Int(p.Merkle.LeafIndex)
		obj["steps"] = steps
	case ProofChainSegment:
		obj["prev_chain_hash"] = record.String(p.Chain.PrevChainHash)
		obj["chain_hash"] = record.String(p.Chain.ChainHash)
	}

	return obj
}
