package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database string
}

// ResolveRow holds one resolution for output.
type ResolveRow struct {
	Ticket   string `json:"ticket"`
	RecordID string `json:"record_id"`
	State    string `json:"state"`
	Seq      *int64 `json:"seq,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Drive pending approvals to completion",
		Long: `Apply decided tickets and enforce the approval timeout.

Each pending admission is polled once: approved tickets append, rejected
tickets land in the rejection log, and tickets past the policy timeout
reject fail-closed. Run it periodically and once after restart; pending
state is durable.

Examples:
  veritrail resolve
  veritrail resolve --db ./veritrail.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	resolutions, err := e.newGate().Resolve(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve pending approvals", err)
	}

	rows := make([]ResolveRow, 0, len(resolutions))
	for _, res := range resolutions {
		row := ResolveRow{Ticket: res.Ticket, RecordID: res.RecordID, State: string(res.Outcome.State)}
		if res.Outcome.Entry != nil {
			seq := res.Outcome.Entry.Seq
			row.Seq = &seq
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		rows = append(rows, row)
	}

	if opts.Format == "json" {
		return writeJSONData(cmd.OutOrStdout(), rows)
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No pending approvals.")
		return nil
	}

	for _, row := range rows {
		switch {
		case row.Seq != nil:
			fmt.Fprintf(w, "✓ %s: appended at seq %d (record %s)\n", row.Ticket, *row.Seq, row.RecordID)
		case row.State == "REJECTED":
			fmt.Fprintf(w, "✗ %s: rejected (record %s)\n", row.Ticket, row.RecordID)
		default:
			fmt.Fprintf(w, "  %s: still awaiting approval (record %s)\n", row.Ticket, row.RecordID)
		}
		if row.Error != "" && opts.Verbose {
			fmt.Fprintf(w, "    %s\n", row.Error)
		}
	}
	return nil
}
