// Package config loads the governance policy (CUE) and CLI settings (YAML).
//
// The policy is authored in CUE so constraints live next to values; the
// loader compiles with the CUE SDK's Go API directly, not a CLI subprocess.
package config

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Policy parameterizes the admission gate and ledger partition.
type Policy struct {
	// Partition names the ledger partition this policy governs.
	Partition string

	// OversightThreshold is the criticality level at or above which a
	// record requires human approval before append. Inclusive.
	OversightThreshold int

	// ApprovalTimeout bounds how long an escalated record may wait for a
	// decision. Expiry resolves fail-closed to rejection.
	ApprovalTimeout time.Duration

	// BatchSize is the Merkle window size N.
	BatchSize int64

	// OpenPhases lists lifecycle phases currently open for admission.
	// Empty means every phase is open; policy files narrow it.
	OpenPhases []string
}

// DefaultPolicy returns the built-in policy used when no file is given.
func DefaultPolicy() Policy {
	return Policy{
		Partition:          "main",
		OversightThreshold: 3,
		ApprovalTimeout:    72 * time.Hour,
		BatchSize:          1024,
	}
}

// PhaseOpen reports whether a lifecycle phase is open for admission.
func (p Policy) PhaseOpen(phase string) bool {
	if len(p.OpenPhases) == 0 {
		return true
	}
	for _, open := range p.OpenPhases {
		if open == phase {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether a criticality level meets the oversight
// threshold. The threshold itself escalates.
func (p Policy) RequiresApproval(criticality int) bool {
	return criticality >= p.OversightThreshold
}

// rawPolicy is the CUE decoding target; the timeout arrives as a duration
// string.
type rawPolicy struct {
	Partition          string   `json:"partition"`
	OversightThreshold int      `json:"oversight_threshold"`
	ApprovalTimeout    string   `json:"approval_timeout"`
	BatchSize          int64    `json:"batch_size"`
	OpenPhases         []string `json:"open_phases"`
}

// LoadPolicy reads and compiles a CUE policy file. The file declares a
// top-level `policy` struct:
//
//	policy: {
//		partition:           "main"
//		oversight_threshold: 3
//		approval_timeout:    "72h"
//		batch_size:          1024
//		open_phases: ["PhaseA", "PhaseB"]
//	}
//
// Omitted fields take the defaults from DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(src)
}

// ParsePolicy compiles CUE policy source.
func ParsePolicy(src []byte) (Policy, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(src)
	if err := v.Err(); err != nil {
		return Policy{}, fmt.Errorf("compile policy: %w", err)
	}

	pv := v.LookupPath(cue.ParsePath("policy"))
	if !pv.Exists() {
		return Policy{}, fmt.Errorf("policy file has no top-level \"policy\" struct")
	}
	if err := pv.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, fmt.Errorf("validate policy: %w", err)
	}

	var raw rawPolicy
	if err := pv.Decode(&raw); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}

	p := DefaultPolicy()
	if raw.Partition != "" {
		p.Partition = raw.Partition
	}
	if raw.OversightThreshold != 0 {
		p.OversightThreshold = raw.OversightThreshold
	}
	if raw.BatchSize != 0 {
		p.BatchSize = raw.BatchSize
	}
	if len(raw.OpenPhases) > 0 {
		p.OpenPhases = raw.OpenPhases
	}
	if raw.ApprovalTimeout != "" {
		d, err := time.ParseDuration(raw.ApprovalTimeout)
		if err != nil {
			return Policy{}, fmt.Errorf("parse approval_timeout %q: %w", raw.ApprovalTimeout, err)
		}
		p.ApprovalTimeout = d
	}

	return p, p.validate()
}

func (p Policy) validate() error {
	if p.Partition == "" {
		return fmt.Errorf("policy: partition must not be empty")
	}
	if p.OversightThreshold < 0 {
		return fmt.Errorf("policy: oversight_threshold must be non-negative, got %d", p.OversightThreshold)
	}
	if p.ApprovalTimeout <= 0 {
		return fmt.Errorf("policy: approval_timeout must be positive, got %s", p.ApprovalTimeout)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("policy: batch_size must be positive, got %d", p.BatchSize)
	}
	return nil
}
