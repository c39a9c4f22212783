package program

import (
	"fmt"
	"strconv"

	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/operations"
	"github.com/forgestack/forge/pkg/status"
	"github.com/spf13/cobra"
)

func NewStatusCommand(globals *cli.Globals) *cobra.Command {
	var target cli.TargetFlags

	cmd := &cobra.Command{
		Use:   "status <program-id>",
		Short: "Show the deployment status of a program",
		Long: `Query the ledger for the account of a program identity.

A program with no account is reported as not deployed. An unreachable
endpoint or a failed query is an error, never "not deployed".`,
		Example: `  # Query the configured network
  forge status 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin

  # Query devnet and print JSON
  forge status 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin -n devnet -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(args[0])
			if err != nil {
				return err
			}
			cfg, err := globals.Config()
			if err != nil {
				return err
			}
			dest, err := target.Apply(cfg)
			if err != nil {
				return err
			}

			return globals.WithLedger(cmd.Context(), cfg, func(programs services.ProgramService) error {
				st, err := operations.WithSpinner("Querying ledger...", !globals.Interactive(),
					func(func(string)) (status.DeploymentStatus, error) {
						return programs.ProgramStatus(cmd.Context(), id, dest.Endpoint)
					})
				if err != nil {
					return err
				}

				format, _ := globals.Format()
				return ui.PrintResult(format, st, func() {
					ui.PrintMetadata("Program ›", id.String())
					ui.PrintMetadata("Network ›", fmt.Sprintf("%s (%s)", dest.Network, dest.Endpoint))
					fmt.Println()
					ui.PrintInfo("Status", ui.StyleDeployed(st.Deployed))
					if st.Deployed {
						ui.PrintInfo("Slot", strconv.FormatUint(*st.Slot, 10))
						ui.PrintInfo("Balance", fmt.Sprintf("%d lamports (%s)", *st.Balance, formatSOL(*st.Balance)))
					}
				})
			})
		},
	}

	target.Register(cmd.Flags())

	return cmd
}
