package query

import (
	"time"
)

// Filter is a conjunctive filter over the indexed entry dimensions.
// Zero-valued fields are wildcards.
type Filter struct {
	Category       string
	LifecyclePhase string
	RecordType     string
	Criticality    *int

	// From and To bound the record timestamp, inclusive on both ends.
	From *time.Time
	To   *time.Time
}

func (f Filter) validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return &Error{Code: CodeInvalidQuery, Message: "time range start is after end"}
	}
	return nil
}

// whereClauses returns the parameterized conjuncts for this filter.
// Values are always bound parameters, never interpolated.
func (f Filter) whereClauses() ([]string, []any) {
	clauses := []string{}
	args := []any{}

	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	if f.LifecyclePhase != "" {
		clauses = append(clauses, "lifecycle_phase = ?")
		args = append(args, f.LifecyclePhase)
	}
	if f.RecordType != "" {
		clauses = append(clauses, "record_type = ?")
		args = append(args, f.RecordType)
	}
	if f.Criticality != nil {
		clauses = append(clauses, "criticality = ?")
		args = append(args, *f.Criticality)
	}
	if f.From != nil {
		clauses = append(clauses, "ts >= ?")
		args = append(args, f.From.Truncate(time.Second).Unix())
	}
	if f.To != nil {
		clauses = append(clauses, "ts <= ?")
		args = append(args, f.To.Truncate(time.Second).Unix())
	}

	return clauses, args
}
