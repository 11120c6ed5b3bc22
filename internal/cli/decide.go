package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritrail/veritrail/internal/ledger"
)

// DecideOptions holds flags for the decide command.
type DecideOptions struct {
	*RootOptions
	Database string
	Approve  bool
	Reject   bool
	Reason   string
}

// NewDecideCommand creates the decide command.
func NewDecideCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecideOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decide <ticket>",
		Short: "Record an approval decision for a ticket",
		Long: `Record the operator's decision for an escalated record.

The decision only marks the ticket; 'veritrail resolve' applies it, so a
decision and its append never race. Decided tickets cannot be re-decided.

Examples:
  veritrail decide 0190a8b2-... --approve
  veritrail decide 0190a8b2-... --reject --reason "stale evidence"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecide(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")
	cmd.Flags().BoolVar(&opts.Approve, "approve", false, "approve the ticket")
	cmd.Flags().BoolVar(&opts.Reject, "reject", false, "reject the ticket")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "decision reason (recorded with rejections)")

	return cmd
}

func runDecide(opts *DecideOptions, ticket string, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Approve == opts.Reject {
		return NewExitError(ExitCommandError, "exactly one of --approve or --reject is required")
	}

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	decision := ledger.DecisionApproved
	if opts.Reject {
		decision = ledger.DecisionRejected
	}

	if err := e.store.SetDecision(ctx, ticket, decision, opts.Reason); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to decide ticket %s", ticket), err)
	}

	if opts.Format == "json" {
		return writeJSONData(cmd.OutOrStdout(), map[string]string{
			"ticket":   ticket,
			"decision": decision,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ticket %s marked %s\n", ticket, decision)
	fmt.Fprintln(cmd.OutOrStdout(), "Apply with: veritrail resolve")
	return nil
}
