package cli

import (
	"github.com/veritrail/veritrail/internal/config"
	"github.com/veritrail/veritrail/internal/gate"
	"github.com/veritrail/veritrail/internal/ledger"
)

// env is the loaded command environment: settings, policy, and an open
// store. Commands that mutate or read the ledger assemble one and close
// it when done.
type env struct {
	settings config.Settings
	policy   config.Policy
	store    *ledger.Store
}

// loadEnv loads settings and policy and opens the ledger database.
// Precedence is flags over settings file over built-in defaults; dbFlag
// empty means the settings value stands.
func loadEnv(opts *RootOptions, dbFlag string) (*env, error) {
	settings, err := config.LoadSettings(opts.Settings)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if dbFlag != "" {
		settings.Database = dbFlag
	}

	policy := config.DefaultPolicy()
	if settings.Policy != "" {
		policy, err = config.LoadPolicy(settings.Policy)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load policy", err)
		}
	}

	store, err := ledger.Open(settings.Database, ledger.Options{
		Partition: policy.Partition,
		BatchSize: policy.BatchSize,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger database", err)
	}

	return &env{settings: settings, policy: policy, store: store}, nil
}

func (e *env) close() error {
	return e.store.Close()
}

// newGate assembles the admission gate over this environment's store,
// using the store-backed approval channel.
func (e *env) newGate() *gate.Gate {
	return gate.New(e.store, e.policy, gate.NewStoreChannel(e.store))
}
