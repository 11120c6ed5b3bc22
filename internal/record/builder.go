package record

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces record identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 record IDs.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Meta carries the descriptive fields of a record that are not derived
// from inputs or results.
type Meta struct {
	SolverIdentity string
	LifecyclePhase string
	Criticality    int
	Category       string
	RecordType     string
}

// Builder turns (inputs, ranked results, metadata) into a signed governance
// tuple. Safe for concurrent use: many workers may build records in
// parallel; serialization happens later, at ledger commit.
//
// IDs and Now are exported so tests can pin identifiers and timestamps for
// golden comparison.
type Builder struct {
	signer Signer

	// IDs generates record identifiers. Defaults to UUIDv7Generator.
	IDs IDGenerator

	// Now is the clock. Defaults to time.Now. The builder truncates the
	// reading to whole seconds before it enters any hash.
	Now func() time.Time
}

// NewBuilder creates a builder signing with the given signer.
func NewBuilder(signer Signer) *Builder {
	return &Builder{
		signer: signer,
		IDs:    UUIDv7Generator{},
		Now:    time.Now,
	}
}

// Build constructs a signed, immutable governance tuple.
//
// Deterministic given (inputs, truncated timestamp): seed and input_hash are
// bit-identical across independent invocations. The ranked results are
// committed via result_hash but their reproduction is the external solver's
// obligation, not this builder's.
//
// Fails with CodeInvalidInput if the inputs or results cannot be
// canonicalized or required metadata is missing, and CodeSigningFailure if
// the signer rejects the payload.
func (b *Builder) Build(inputs Object, results Array, meta Meta) (*Tuple, error) {
	if meta.SolverIdentity == "" {
		return nil, &BuildError{Code: CodeInvalidInput, Message: "solver identity is required"}
	}
	if meta.LifecyclePhase == "" {
		return nil, &BuildError{Code: CodeInvalidInput, Message: "lifecycle phase is required"}
	}
	if meta.Criticality < 0 {
		return nil, &BuildError{Code: CodeInvalidInput, Message: fmt.Sprintf("criticality must be non-negative, got %d", meta.Criticality)}
	}
	if results == nil {
		results = Array{}
	}

	ts := b.Now().Truncate(time.Second).Unix()

	inputHash, err := InputHash(inputs)
	if err != nil {
		return nil, &BuildError{Code: CodeInvalidInput, Message: "inputs are not canonicalizable", Err: err}
	}

	seed, err := Seed(inputs, time.Unix(ts, 0))
	if err != nil {
		return nil, &BuildError{Code: CodeInvalidInput, Message: "inputs are not canonicalizable", Err: err}
	}

	resultHash, err := ResultHash(results)
	if err != nil {
		return nil, &BuildError{Code: CodeInvalidInput, Message: "ranked results are not canonicalizable", Err: err}
	}

	t := &Tuple{
		ID:             b.IDs.Generate(),
		Seed:           seed,
		SeedHex:        fmt.Sprintf("%016x", seed),
		InputHash:      inputHash,
		SolverIdentity: meta.SolverIdentity,
		RankedResults:  results,
		ResultHash:     resultHash,
		LifecyclePhase: meta.LifecyclePhase,
		Criticality:    meta.Criticality,
		Timestamp:      ts,
		Category:       meta.Category,
		RecordType:     meta.RecordType,
		Signer:         b.signer.Public(),
	}

	sig, err := b.signer.Sign(t.Payload())
	if err != nil {
		return nil, &BuildError{Code: CodeSigningFailure, Message: "signer rejected payload", Err: err}
	}
	t.Signature = hex.EncodeToString(sig)

	return t, nil
}
