// Package ledger provides SQLite-backed durable storage for the evidence
// ledger: an append-only, hash-chained sequence of governance tuples with
// secondary indices and sealed Merkle batches.
//
// # Invariants
//
//   - sequence_index is strictly increasing with no gaps, assigned at
//     commit time under a single per-partition writer lock.
//   - chain_hash[i] = SHA-256(domain ‖ serialize(entry[i]) ‖
//     serialize(entry[i-1]) ‖ chain_hash[i-1]); chain_hash[-1] is 32 zero
//     bytes and serialize(entry[-1]) is empty.
//   - Entries are never mutated, deleted, or reordered. There is no
//     physical deletion path; retention is the archival collaborator's
//     concern, signalled via batch-sealed events.
//   - Secondary indices and Merkle batches are derived data: both are
//     reconstructible from the entries table alone.
//
// Appends are all-or-nothing: the chain hash computation, the entry row,
// and any batch seal commit in one transaction. A crash mid-append leaves
// no partial entry; reopening resumes from the last confirmed sequence.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Rejected admissions never touch the chained tables; they land in the
// separate rejections table for diagnostics only.
package ledger
