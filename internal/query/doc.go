// Package query answers filtered, snapshot-consistent reads over a
// ledger partition.
//
// A query is pinned to the ledger tail observed when it starts; appends
// committed afterwards never appear in later pages of the same result
// set. Pages resume through opaque tokens, results come back in ascending
// sequence order, and every returned entry carries a verification
// artifact: a Merkle inclusion proof when its batch has sealed, a chain
// segment otherwise.
package query
