package ledger

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/veritrail/veritrail/internal/record"
)

const (
	appendAttempts = 3
	appendBackoff  = 50 * time.Millisecond
)

// Append commits an approved tuple as the next ledger entry.
//
// The chain hash computation, the entry row, and any batch seal happen in
// one transaction: a crash between hash computation and persistence leaves
// nothing behind, and reopening resumes from the last confirmed sequence.
// The sequence index is assigned here, at commit time, under the partition
// writer lock - concurrent approvals race for ordering, never correctness.
//
// Transient storage failures are retried with backoff up to appendAttempts;
// after that a PersistenceError is returned and the caller must treat the
// admission as fatally failed rather than silently dropped.
func (s *Store) Append(ctx context.Context, t *record.Tuple, ap *Approval) (Entry, error) {
	var lastErr error

	for attempt := 0; attempt < appendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Entry{}, &PersistenceError{Op: "append", Attempts: attempt, Err: ctx.Err()}
			case <-time.After(appendBackoff << (attempt - 1)):
			}
		}

		entry, sealed, err := s.appendOnce(ctx, t, ap)
		if err == nil {
			if sealed != nil {
				s.notifySealed(*sealed)
			}
			return entry, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return Entry{}, &PersistenceError{Op: "append", Attempts: appendAttempts, Err: lastErr}
}

// appendOnce runs a single append transaction. Returns the committed entry
// and, when this append completed a Merkle window, the sealed batch.
func (s *Store) appendOnce(ctx context.Context, t *record.Tuple, ap *Approval) (Entry, *Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	// Read the confirmed tail.
	var (
		seq       int64
		prevBytes []byte
		prevChain []byte
	)
	prev, ok, err := tailInTx(ctx, tx)
	if err != nil {
		return Entry{}, nil, err
	}
	if ok {
		seq = prev.Seq + 1
		prevBytes, err = EntryBytes(prev)
		if err != nil {
			return Entry{}, nil, err
		}
		prevChain, err = hex.DecodeString(prev.ChainHash)
		if err != nil {
			return Entry{}, nil, fmt.Errorf("decode tail chain hash: %w", err)
		}
	}

	entry := Entry{Seq: seq, Tuple: *t, Approval: ap}
	curBytes, err := EntryBytes(entry)
	if err != nil {
		return Entry{}, nil, err
	}
	entry.ChainHash = NextChainHash(curBytes, prevBytes, prevChain)

	resultsJSON, err := record.MarshalCanonical(t.RankedResults)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("marshal ranked results: %w", err)
	}

	var ticket, decision any
	if ap != nil {
		ticket, decision = ap.Ticket, ap.Decision
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries
		(seq, record_id, seed, input_hash, solver_identity, ranked_results, result_hash,
		 lifecycle_phase, criticality, ts, category, record_type, signer, signature,
		 approval_ticket, approval_decision, chain_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Seq,
		t.ID,
		fmt.Sprintf("%016x", t.Seed),
		t.InputHash,
		t.SolverIdentity,
		string(resultsJSON),
		t.ResultHash,
		t.LifecyclePhase,
		t.Criticality,
		t.Timestamp,
		t.Category,
		t.RecordType,
		t.Signer,
		t.Signature,
		ticket,
		decision,
		entry.ChainHash,
	)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("insert entry: %w", err)
	}

	// Seal the Merkle window if this entry completes one.
	var sealed *Batch
	if (entry.Seq+1)%s.batchSize == 0 {
		sealed, err = s.sealBatchInTx(ctx, tx, entry.Seq)
		if err != nil {
			return Entry{}, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, nil, fmt.Errorf("commit: %w", err)
	}

	return entry, sealed, nil
}

// sealBatchInTx computes the Merkle root over the window ending at lastSeq
// and inserts the batch row. Runs inside the append transaction so a seal
// is atomic with the entry that completes it.
func (s *Store) sealBatchInTx(ctx context.Context, tx *sql.Tx, lastSeq int64) (*Batch, error) {
	firstSeq := lastSeq + 1 - s.batchSize

	rows, err := tx.QueryContext(ctx, entrySelect+` WHERE seq >= ? AND seq <= ? ORDER BY seq ASC`, firstSeq, lastSeq)
	if err != nil {
		return nil, fmt.Errorf("read batch window: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	if int64(len(entries)) != s.batchSize {
		return nil, fmt.Errorf("batch window [%d,%d] has %d entries, want %d", firstSeq, lastSeq, len(entries), s.batchSize)
	}

	leaves := make([][]byte, len(entries))
	for i, e := range entries {
		b, err := EntryBytes(e)
		if err != nil {
			return nil, err
		}
		leaves[i] = leafHash(b)
	}

	batch := Batch{
		Index:    lastSeq / s.batchSize,
		FirstSeq: firstSeq,
		LastSeq:  lastSeq,
		Root:     hex.EncodeToString(merkleRoot(leaves)),
		SealedAt: time.Now().Unix(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (batch_index, first_seq, last_seq, root_hash, sealed_ts)
		VALUES (?, ?, ?, ?, ?)
	`, batch.Index, batch.FirstSeq, batch.LastSeq, batch.Root, batch.SealedAt)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	return &batch, nil
}

// tailInTx reads the highest-sequence entry inside a transaction.
func tailInTx(ctx context.Context, tx *sql.Tx) (Entry, bool, error) {
	row := tx.QueryRowContext(ctx, entrySelect+` ORDER BY seq DESC LIMIT 1`)
	e, err := scanEntryRow(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read tail: %w", err)
	}
	return e, true, nil
}
