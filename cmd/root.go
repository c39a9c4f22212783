package cmd

import (
	"os"

	"github.com/forgestack/forge/cmd/network"
	"github.com/forgestack/forge/cmd/program"
	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var globals = &cli.Globals{}

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Build, deploy and inspect on-chain programs",
	Long: `forge manages the lifecycle of an on-chain program.

It compiles a Rust source tree into program bytecode, gives the program an
identity, submits it to a ledger network and reports its live deployment
state.

Key capabilities:
* Scaffold a program project
* Build programs with the SBF toolchain
* Deploy programs in chunks over JSON-RPC
* Query the deployment status of any program identity
* Keep a local history of builds and deployments`,
	Example: `  # Create a new program
  forge init vault

  # Build the program in the current directory
  forge build

  # Deploy it to devnet
  forge deploy --network devnet

  # Check whether it is live
  forge status <program-id> --network devnet

  # Use a custom config file
  forge --config ~/.forge/custom.yaml history`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := globals.Format(); err != nil {
			return err
		}

		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if globals.Interactive() && cmd.Name() == "doctor" {
			ui.PrintLogo()
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globals.ConfigPath, "config", "c", config.DefaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&globals.Output, "output", "o", string(ui.FormatText), "Output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&globals.Plain, "plain", false, "Disable spinners, prompts and the banner")

	rootCmd.AddCommand(program.NewInitCommand(globals))
	rootCmd.AddCommand(program.NewBuildCommand(globals))
	rootCmd.AddCommand(program.NewDeployCommand(globals))
	rootCmd.AddCommand(program.NewStatusCommand(globals))
	rootCmd.AddCommand(program.NewHistoryCommand(globals))
	rootCmd.AddCommand(network.NewNetworkCommand(globals))
	rootCmd.AddCommand(NewDoctorCommand(globals))
}
