package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/veritrail/veritrail/internal/record"
)

// entrySelect is the shared column list for entry reads. Every entry query
// in this package and in the query engine selects exactly these columns in
// this order so one scanner serves all of them.
const entrySelect = `
	SELECT seq, record_id, seed, input_hash, solver_identity, ranked_results,
	       result_hash, lifecycle_phase, criticality, ts, category, record_type,
	       signer, signature, approval_ticket, approval_decision, chain_hash
	FROM entries`

// EntrySelect exposes the column list for the query engine's SQL assembly.
func EntrySelect() string {
	return entrySelect
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntryRow scans one entry from a row or rows cursor.
func scanEntryRow(sc rowScanner) (Entry, error) {
	var (
		e           Entry
		seedHex     string
		resultsJSON string
		ticket      sql.NullString
		decision    sql.NullString
	)

	if err := sc.Scan(
		&e.Seq,
		&e.Tuple.ID,
		&seedHex,
		&e.Tuple.InputHash,
		&e.Tuple.SolverIdentity,
		&resultsJSON,
		&e.Tuple.ResultHash,
		&e.Tuple.LifecyclePhase,
		&e.Tuple.Criticality,
		&e.Tuple.Timestamp,
		&e.Tuple.Category,
		&e.Tuple.RecordType,
		&e.Tuple.Signer,
		&e.Tuple.Signature,
		&ticket,
		&decision,
		&e.ChainHash,
	); err != nil {
		return Entry{}, err
	}

	e.Tuple.SeedHex = seedHex
	if _, err := fmt.Sscanf(seedHex, "%016x", &e.Tuple.Seed); err != nil {
		return Entry{}, fmt.Errorf("decode seed %q: %w", seedHex, err)
	}

	var results record.Array
	if err := results.UnmarshalJSON([]byte(resultsJSON)); err != nil {
		return Entry{}, fmt.Errorf("decode ranked results for seq %d: %w", e.Seq, err)
	}
	e.Tuple.RankedResults = results

	if ticket.Valid && decision.Valid {
		e.Approval = &Approval{Ticket: ticket.String, Decision: decision.String}
	}

	return e, nil
}

// CollectEntries drains a rows cursor produced by an EntrySelect query.
// The query engine assembles its own WHERE clauses and hands the cursor
// back here for scanning.
func CollectEntries(rows *sql.Rows) ([]Entry, error) {
	return collectEntries(rows)
}

// collectEntries drains a rows cursor into a slice. Closes the cursor.
func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Read retrieves the entry at a sequence index. O(1) via the primary key.
// Returns sql.ErrNoRows if the index has not been committed.
func (s *Store) Read(ctx context.Context, seq int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, entrySelect+` WHERE seq = ?`, seq)
	return scanEntryRow(row)
}

// ReadRange returns entries with from <= seq <= to in ascending order.
func (s *Store) ReadRange(ctx context.Context, from, to int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, entrySelect+` WHERE seq >= ? AND seq <= ? ORDER BY seq ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	return collectEntries(rows)
}

// Tail returns the highest-sequence entry, or ok=false on an empty ledger.
func (s *Store) Tail(ctx context.Context) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, entrySelect+` ORDER BY seq DESC LIMIT 1`)
	e, err := scanEntryRow(row)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read tail: %w", err)
	}
	return e, true, nil
}

// Len returns the number of committed entries. The sequence is gapless, so
// this is also tail seq + 1.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// indexColumns whitelists the filter dimensions backed by secondary
// indices. Values are column names; never interpolate caller input.
var indexColumns = map[string]string{
	"category":        "category",
	"lifecycle_phase": "lifecycle_phase",
	"criticality":     "criticality",
	"record_type":     "record_type",
}

// IndexScan resolves a filter dimension value to the ascending set of
// sequence indices carrying it. Dimension "day" buckets by UTC calendar
// day ("2026-08-27"); the rest match their column exactly.
func (s *Store) IndexScan(ctx context.Context, dimension string, value any) ([]int64, error) {
	var (
		query string
		args  []any
	)

	if dimension == "day" {
		day, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("index scan: day value must be a string, got %T", value)
		}
		start, err := time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("index scan: bad day %q: %w", day, err)
		}
		query = `SELECT seq FROM entries WHERE ts >= ? AND ts < ? ORDER BY seq ASC`
		args = []any{start.Unix(), start.AddDate(0, 0, 1).Unix()}
	} else {
		col, ok := indexColumns[dimension]
		if !ok {
			return nil, fmt.Errorf("index scan: unknown dimension %q", dimension)
		}
		query = `SELECT seq FROM entries WHERE ` + col + ` = ? ORDER BY seq ASC`
		args = []any{value}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index scan: %w", err)
	}
	defer rows.Close()

	seqs := []int64{}
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("index scan: %w", err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index scan: %w", err)
	}
	return seqs, nil
}

// Batches returns all sealed batches in index order.
func (s *Store) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_index, first_seq, last_seq, root_hash, sealed_ts
		FROM batches
		ORDER BY batch_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.Index, &b.FirstSeq, &b.LastSeq, &b.Root, &b.SealedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// BatchFor returns the sealed batch covering seq, or ok=false if that
// window has not sealed yet.
func (s *Store) BatchFor(ctx context.Context, seq int64) (Batch, bool, error) {
	var b Batch
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_index, first_seq, last_seq, root_hash, sealed_ts
		FROM batches
		WHERE first_seq <= ? AND last_seq >= ?
	`, seq, seq).Scan(&b.Index, &b.FirstSeq, &b.LastSeq, &b.Root, &b.SealedAt)
	if err == sql.ErrNoRows {
		return Batch{}, false, nil
	}
	if err != nil {
		return Batch{}, false, fmt.Errorf("query batch for seq %d: %w", seq, err)
	}
	return b, true, nil
}
