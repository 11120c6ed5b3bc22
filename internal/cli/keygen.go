package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veritrail/veritrail/internal/record"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out   string
	Force bool
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 signing key",
		Long: `Generate an ed25519 signing key for building records.

The private seed is written hex-encoded with mode 0600; the public key is
printed so it can be registered with verifiers.

Examples:
  veritrail keygen --out solver.key
  veritrail keygen --out solver.key --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "path to write the key file (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing key file")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	if !opts.Force {
		if _, err := os.Stat(opts.Out); err == nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("key file %s already exists (use --force to overwrite)", opts.Out))
		}
	}

	signer, err := record.GenerateSigner()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate key", err)
	}
	if err := signer.SaveKeyFile(opts.Out); err != nil {
		return WrapExitError(ExitCommandError, "failed to save key file", err)
	}

	if opts.Format == "json" {
		return writeJSONData(cmd.OutOrStdout(), map[string]string{
			"key_file":   opts.Out,
			"public_key": signer.Public(),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Key written to %s\n", opts.Out)
	fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", signer.Public())
	return nil
}
