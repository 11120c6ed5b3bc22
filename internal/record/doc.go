// Package record implements the deterministic record layer of the ledger:
// a constrained value model with RFC 8785 canonical JSON serialization,
// SHA-256 hashing with domain separation, the governance tuple, and the
// record builder that turns (inputs, ranked results, metadata) into a
// signed, reproducible tuple.
//
// # Determinism rules
//
//   - All hashing goes through MarshalCanonical. Object keys are ordered by
//     UTF-16 code units, strings are NFC normalized, HTML escaping is off.
//   - Floats and nulls are forbidden in canonical positions. Inputs that
//     cannot be normalized fail with CodeInvalidInput.
//   - Timestamps are truncated to whole seconds before they enter any hash
//     or signature payload.
//
// The builder reads only a clock and a signing key; it has no other side
// effects. Reproducing the ranked results themselves is the solver's
// obligation - the tuple merely commits to them via solver identity and
// input hash.
package record
