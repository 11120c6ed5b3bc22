package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// StatusResult holds the partition summary for output.
type StatusResult struct {
	Partition     string `json:"partition"`
	BatchSize     int64  `json:"batch_size"`
	Entries       int64  `json:"entries"`
	TailSeq       *int64 `json:"tail_seq,omitempty"`
	TailChainHash string `json:"tail_chain_hash,omitempty"`
	SealedBatches int    `json:"sealed_batches"`
	Pending       int    `json:"pending_approvals"`
	Rejections    int    `json:"rejections"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize a ledger partition",
		Long: `Print the partition's tail position, sealed batches, pending
approvals, and rejection count.

Examples:
  veritrail status
  veritrail status --db ./veritrail.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	result := StatusResult{Partition: e.store.Partition(), BatchSize: e.store.BatchSize()}

	if result.Entries, err = e.store.Len(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to count entries", err)
	}

	tail, ok, err := e.store.Tail(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tail", err)
	}
	if ok {
		seq := tail.Seq
		result.TailSeq = &seq
		result.TailChainHash = tail.ChainHash
	}

	batches, err := e.store.Batches(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list batches", err)
	}
	result.SealedBatches = len(batches)

	pending, err := e.store.PendingList(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list pending approvals", err)
	}
	result.Pending = len(pending)

	rejections, err := e.store.Rejections(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list rejections", err)
	}
	result.Rejections = len(rejections)

	if opts.Format == "json" {
		return writeJSONData(cmd.OutOrStdout(), result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Partition: %s (batch size %d)\n", result.Partition, result.BatchSize)
	fmt.Fprintf(w, "Entries: %d\n", result.Entries)
	if result.TailSeq != nil {
		fmt.Fprintf(w, "Tail: seq %d, chain hash %s\n", *result.TailSeq, result.TailChainHash)
	} else {
		fmt.Fprintln(w, "Tail: empty ledger")
	}
	fmt.Fprintf(w, "Sealed batches: %d\n", result.SealedBatches)
	fmt.Fprintf(w, "Pending approvals: %d\n", result.Pending)
	fmt.Fprintf(w, "Rejections: %d\n", result.Rejections)
	return nil
}
