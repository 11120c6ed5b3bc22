package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veritrail/veritrail/internal/gate"
	"github.com/veritrail/veritrail/internal/record"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Database    string
	Key         string
	Inputs      string
	Results     string
	Solver      string
	Phase       string
	Criticality int
	Category    string
	RecordType  string
}

// SubmitResult holds the admission outcome for output.
type SubmitResult struct {
	State     string `json:"state"`
	RecordID  string `json:"record_id"`
	Seq       *int64 `json:"seq,omitempty"`
	ChainHash string `json:"chain_hash,omitempty"`
	Ticket    string `json:"ticket,omitempty"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Build, sign, and admit a record",
		Long: `Build a signed record from inputs and ranked results, then run it
through admission.

Records below the oversight threshold append immediately. Records at or
above it are escalated: the command prints the approval ticket, an
operator decides it with 'veritrail decide', and 'veritrail resolve'
completes the admission.

Exit codes:
  0 - Appended or awaiting approval
  1 - Rejected (bad signature, closed lifecycle phase)
  2 - Command error

Examples:
  veritrail submit --inputs inputs.json --results results.json \
    --solver solver-7 --phase execution --criticality 2
  veritrail submit --inputs inputs.json --results results.json \
    --solver solver-7 --phase execution --criticality 4 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "path to the signing key file (overrides settings)")
	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "path to the inputs JSON file (required)")
	_ = cmd.MarkFlagRequired("inputs")
	cmd.Flags().StringVar(&opts.Results, "results", "", "path to the ranked results JSON file (required)")
	_ = cmd.MarkFlagRequired("results")
	cmd.Flags().StringVar(&opts.Solver, "solver", "", "solver identity (required)")
	_ = cmd.MarkFlagRequired("solver")
	cmd.Flags().StringVar(&opts.Phase, "phase", "", "lifecycle phase (required)")
	_ = cmd.MarkFlagRequired("phase")
	cmd.Flags().IntVar(&opts.Criticality, "criticality", 0, "criticality level")
	cmd.Flags().StringVar(&opts.Category, "category", "", "record category")
	cmd.Flags().StringVar(&opts.RecordType, "type", "", "record type")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	keyPath := opts.Key
	if keyPath == "" {
		keyPath = e.settings.KeyFile
	}
	if keyPath == "" {
		return NewExitError(ExitCommandError, "no signing key: set --key or key_file in settings")
	}
	signer, err := record.LoadKeyFile(keyPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load signing key", err)
	}

	inputs, err := readInputs(opts.Inputs)
	if err != nil {
		return err
	}
	results, err := readResults(opts.Results)
	if err != nil {
		return err
	}

	builder := record.NewBuilder(signer)
	tuple, err := builder.Build(inputs, results, record.Meta{
		SolverIdentity: opts.Solver,
		LifecyclePhase: opts.Phase,
		Criticality:    opts.Criticality,
		Category:       opts.Category,
		RecordType:     opts.RecordType,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build record", err)
	}

	outcome, err := e.newGate().Submit(ctx, tuple)
	var admErr *gate.AdmissionError
	if err != nil && !errors.As(err, &admErr) {
		return WrapExitError(ExitCommandError, "admission failed", err)
	}

	result := SubmitResult{State: string(outcome.State), RecordID: tuple.ID, Ticket: outcome.Ticket}
	if outcome.Entry != nil {
		seq := outcome.Entry.Seq
		result.Seq = &seq
		result.ChainHash = outcome.Entry.ChainHash
	}

	if opts.Format == "json" {
		if admErr != nil {
			if werr := writeJSON(cmd.OutOrStdout(), CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: string(admErr.Code), Message: admErr.Message},
			}); werr != nil {
				return werr
			}
			return NewExitError(ExitFailure, admErr.Message)
		}
		return writeJSONData(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	switch {
	case admErr != nil:
		fmt.Fprintf(w, "Rejected: %s\n", admErr.Error())
		return NewExitError(ExitFailure, admErr.Message)
	case outcome.Entry != nil:
		fmt.Fprintf(w, "Appended record %s at seq %d\n", tuple.ID, outcome.Entry.Seq)
		fmt.Fprintf(w, "Chain hash: %s\n", outcome.Entry.ChainHash)
	default:
		fmt.Fprintf(w, "Awaiting approval: record %s, ticket %s\n", tuple.ID, outcome.Ticket)
		fmt.Fprintf(w, "Decide with: veritrail decide %s --approve\n", outcome.Ticket)
	}
	return nil
}

func readInputs(path string) (record.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read inputs", err)
	}
	obj, err := record.ParseObject(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("inputs %s are not canonicalizable", path), err)
	}
	return obj, nil
}

func readResults(path string) (record.Array, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read results", err)
	}
	arr, err := record.ParseArray(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("results %s are not canonicalizable", path), err)
	}
	return arr, nil
}
