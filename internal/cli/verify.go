package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/veritrail/veritrail/internal/verify"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify ledger integrity offline",
		Long: `Recompute the partition's integrity artifacts from scratch and report
divergence.

Checks sequence continuity, every record signature, result-hash
commitments, the full chain from the zero hash, and every sealed batch
root. Needs only the database file and runs read-only; it never repairs.

Exit codes:
  0 - All checks passed
  1 - Integrity violation detected
  2 - Command error (database not found, etc.)

Examples:
  veritrail verify --db ./veritrail.db
  veritrail verify --db ./veritrail.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	report, err := verify.Run(ctx, e.store)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification could not complete", err)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if !report.OK {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_INTEGRITY", Message: "integrity verification failed"}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if !report.OK {
			return NewExitError(ExitFailure, "integrity verification failed")
		}
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Partition: %s\n", e.store.Partition())
	fmt.Fprintf(w, "Entries: %d\n", report.Entries)
	fmt.Fprintf(w, "Batches checked: %d\n", report.BatchesChecked)
	fmt.Fprintln(w)

	if report.OK {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "✓ Ledger integrity verified")
		return nil
	}

	color.New(color.FgRed, color.Bold).Fprintln(w, "✗ Integrity verification failed")
	if report.FirstMismatch != nil {
		fmt.Fprintf(w, "First chain mismatch at seq %d\n", *report.FirstMismatch)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
	return NewExitError(ExitFailure, "integrity verification failed")
}
