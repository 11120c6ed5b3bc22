package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/veritrail/veritrail/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database    string
	Category    string
	Phase       string
	RecordType  string
	Criticality int
	From        string
	To          string
	PageSize    int
	Token       string
	Seq         int64
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a filtered, snapshot-consistent read",
		Long: `Query committed entries with conjunctive filters.

Results are pinned to the ledger tail observed when the query starts:
concurrent appends never leak into later pages. Each entry carries a
verification artifact (Merkle proof or chain segment). Resume a result
set by passing the printed token back with --token.

Time bounds use RFC 3339 and are inclusive.

Examples:
  veritrail query --category ranking --criticality 3
  veritrail query --phase execution --from 2026-08-01T00:00:00Z --format json
  veritrail query --seq 42
  veritrail query --token eyJhZnRlcl9zZXEi...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the ledger database (overrides settings)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&opts.Phase, "phase", "", "filter by lifecycle phase")
	cmd.Flags().StringVar(&opts.RecordType, "type", "", "filter by record type")
	cmd.Flags().IntVar(&opts.Criticality, "criticality", -1, "filter by exact criticality level")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest record timestamp (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest record timestamp (RFC 3339)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "entries per page (default 100)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "resume token from a previous page")
	cmd.Flags().Int64Var(&opts.Seq, "seq", -1, "read one entry by sequence index")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	e, err := loadEnv(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer e.close()

	engine := query.New(e.store)

	if opts.Seq >= 0 {
		return querySingle(ctx, engine, opts, cmd)
	}

	filter := query.Filter{
		Category:       opts.Category,
		LifecyclePhase: opts.Phase,
		RecordType:     opts.RecordType,
	}
	if opts.Criticality >= 0 {
		filter.Criticality = &opts.Criticality
	}
	if filter.From, err = parseTimeFlag(opts.From, "--from"); err != nil {
		return err
	}
	if filter.To, err = parseTimeFlag(opts.To, "--to"); err != nil {
		return err
	}

	page, err := engine.Run(ctx, filter, opts.Token, opts.PageSize)
	if err != nil {
		if query.IsInvalidQuery(err) {
			return WrapExitError(ExitCommandError, "invalid query", err)
		}
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	if opts.Format == "json" {
		out, err := page.CanonicalJSON()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render page", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Snapshot tail: seq %d\n", page.SnapshotSeq)
	fmt.Fprintf(w, "Entries: %d\n\n", len(page.Entries))
	for _, ve := range page.Entries {
		printEntry(w, ve, opts.Verbose)
	}
	if page.NextToken != "" {
		fmt.Fprintf(w, "More results: veritrail query --token %s\n", page.NextToken)
	}
	return nil
}

func querySingle(ctx context.Context, engine *query.Engine, opts *QueryOptions, cmd *cobra.Command) error {
	ve, err := engine.Get(ctx, opts.Seq)
	if err != nil {
		if query.IsNotFound(err) {
			return WrapExitError(ExitFailure, fmt.Sprintf("no entry at seq %d", opts.Seq), err)
		}
		return WrapExitError(ExitCommandError, "read failed", err)
	}

	if opts.Format == "json" {
		page := &query.Page{SnapshotSeq: ve.Entry.Seq, Entries: []query.VerifiedEntry{ve}}
		out, err := page.CanonicalJSON()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render entry", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	printEntry(cmd.OutOrStdout(), ve, opts.Verbose)
	return nil
}

func printEntry(w io.Writer, ve query.VerifiedEntry, verbose bool) {
	t := ve.Entry.Tuple
	fmt.Fprintf(w, "seq %d  %s  phase=%s criticality=%d category=%s\n",
		ve.Entry.Seq, t.ID, t.LifecyclePhase, t.Criticality, t.Category)
	if ve.Entry.Approval != nil {
		fmt.Fprintf(w, "  approval: ticket %s (%s)\n", ve.Entry.Approval.Ticket, ve.Entry.Approval.Decision)
	}
	if verbose {
		fmt.Fprintf(w, "  solver: %s  signer: %s\n", t.SolverIdentity, t.Signer)
		fmt.Fprintf(w, "  input_hash:  %s\n", t.InputHash)
		fmt.Fprintf(w, "  result_hash: %s\n", t.ResultHash)
		fmt.Fprintf(w, "  chain_hash:  %s\n", ve.Entry.ChainHash)
		switch ve.Proof.Kind {
		case query.ProofMerkle:
			fmt.Fprintf(w, "  proof: merkle, batch %d, %d steps\n", ve.Proof.Merkle.Batch.Index, len(ve.Proof.Merkle.Steps))
		case query.ProofChainSegment:
			fmt.Fprintf(w, "  proof: chain segment (batch not sealed)\n")
		}
	}
}

func parseTimeFlag(value, flag string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s: %q is not RFC 3339", flag, value), err)
	}
	return &t, nil
}
