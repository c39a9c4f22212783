// Package cli holds state shared by the forge commands.
package cli

import (
	"context"
	"fmt"

	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/di"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

// Globals are the persistent root flags.
type Globals struct {
	ConfigPath string
	Output     string
	LogLevel   string
	Plain      bool
}

// Config loads the configuration file named by --config and applies the
// --log-level override.
func (g *Globals) Config() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (g *Globals) Format() (ui.Format, error) {
	return ui.ParseFormat(g.Output)
}

// Interactive reports whether spinners and prompts may be shown.
func (g *Globals) Interactive() bool {
	return !g.Plain && g.Output == string(ui.FormatText)
}

// WithPrograms starts the application for cfg with the local history, runs fn
// and shuts it down. Only one process at a time can hold the history.
func (g *Globals) WithPrograms(ctx context.Context, cfg *config.Config, fn func(services.ProgramService) error) error {
	return run(ctx, cfg, fn, di.HistoryModule)
}

// WithLedger is WithPrograms without the local history. Any number of
// WithLedger commands may run next to a WithPrograms one.
func (g *Globals) WithLedger(ctx context.Context, cfg *config.Config, fn func(services.ProgramService) error) error {
	return run(ctx, cfg, fn)
}

func run(ctx context.Context, cfg *config.Config, fn func(services.ProgramService) error, opts ...fx.Option) error {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return err
	}
	if err := container.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer container.Stop(context.Background())

	return fn(container.Programs())
}

// TargetFlags select the ledger a command talks to.
type TargetFlags struct {
	Network string
	URL     string
}

func (t *TargetFlags) Register(fs *pflag.FlagSet) {
	fs.StringVarP(&t.Network, "network", "n", "", "Network preset (localnet, devnet, mainnet-beta)")
	fs.StringVarP(&t.URL, "url", "u", "", "Ledger RPC URL; overrides --network")
}

// Apply overrides the configured network. --network picks a preset and drops
// any configured rpc.url. --url alone selects the custom network; with
// --network it replaces that network's endpoint.
func (t TargetFlags) Apply(cfg *config.Config) (services.Target, error) {
	if t.Network != "" {
		cfg.Network = t.Network
		cfg.RPC.URL = ""
	}
	if t.URL != "" {
		cfg.RPC.URL = t.URL
		if t.Network == "" {
			cfg.Network = config.NetworkCustom
		}
	}
	if err := cfg.Validate(); err != nil {
		return services.Target{}, err
	}
	return services.Target{Network: cfg.Network, Endpoint: cfg.Endpoint()}, nil
}
