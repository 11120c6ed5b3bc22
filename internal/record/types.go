package record

import (
	"encoding/json"
	"fmt"
)

// Tuple is the governance tuple: the signed, immutable record of a single
// solver computation or governance decision. Construct via Builder.Build;
// do not mutate after construction.
type Tuple struct {
	ID             string `json:"id"`              // UUIDv7
	Seed           uint64 `json:"-"`               // first 64 bits of SHA-256(canonical(inputs) ‖ timestamp)
	SeedHex        string `json:"seed"`            // Seed as 16 hex chars, the serialized form
	InputHash      string `json:"input_hash"`      // hex SHA-256 of canonical inputs
	SolverIdentity string `json:"solver_identity"` // opaque solver version commitment
	RankedResults  Array  `json:"ranked_results"`  // ordered result candidates
	ResultHash     string `json:"result_hash"`     // hex SHA-256 of canonical ranked results
	LifecyclePhase string `json:"lifecycle_phase"`
	Criticality    int    `json:"criticality_level"`
	Timestamp      int64  `json:"timestamp"` // unix seconds, truncated
	Category       string `json:"category"`
	RecordType     string `json:"record_type"`
	Signer         string `json:"signer"`    // hex ed25519 public key
	Signature      string `json:"signature"` // hex ed25519 signature over SignaturePayload
}

// CanonicalMap returns the tuple as a canonical Object for hashing and
// entry serialization. The seed is carried as its 16-hex-char form so the
// full uint64 range survives canonical JSON (which is int64-only).
func (t *Tuple) CanonicalMap() Object {
	return Object{
		"id":                String(t.ID),
		"seed":              String(fmt.Sprintf("%016x", t.Seed)),
		"input_hash":        String(t.InputHash),
		"solver_identity":   String(t.SolverIdentity),
		"ranked_results":    t.RankedResults,
		"result_hash":       String(t.ResultHash),
		"lifecycle_phase":   String(t.LifecyclePhase),
		"criticality_level": Int(t.Criticality),
		"timestamp":         Int(t.Timestamp),
		"category":          String(t.Category),
		"record_type":       String(t.RecordType),
		"signer":            String(t.Signer),
		"signature":         String(t.Signature),
	}
}

// CanonicalBytes returns the canonical JSON serialization of the tuple.
func (t *Tuple) CanonicalBytes() ([]byte, error) {
	b, err := MarshalCanonical(t.CanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("tuple %s: %w", t.ID, err)
	}
	return b, nil
}

// MarshalJSON serializes the tuple with the seed in hex form.
func (t *Tuple) MarshalJSON() ([]byte, error) {
	type alias Tuple
	a := alias(*t)
	a.SeedHex = fmt.Sprintf("%016x", t.Seed)
	return json.Marshal(a)
}

// UnmarshalJSON restores a tuple, decoding the hex seed back to uint64.
func (t *Tuple) UnmarshalJSON(data []byte) error {
	type alias Tuple
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Tuple(a)
	if t.SeedHex != "" {
		if _, err := fmt.Sscanf(t.SeedHex, "%016x", &t.Seed); err != nil {
			return fmt.Errorf("decode seed %q: %w", t.SeedHex, err)
		}
	}
	return nil
}

// Payload recomputes the signature payload digest for this tuple.
func (t *Tuple) Payload() []byte {
	return SignaturePayload(t.Seed, t.InputHash, t.SolverIdentity, t.ResultHash, t.LifecyclePhase, t.Timestamp)
}
