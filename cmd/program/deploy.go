package program

import (
	"fmt"
	"time"

	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/operations"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/spf13/cobra"
)

type deployView struct {
	Identity   identity.Identity `json:"identity" yaml:"identity"`
	Digest     string            `json:"digest" yaml:"digest"`
	Network    string            `json:"network" yaml:"network"`
	Endpoint   string            `json:"endpoint" yaml:"endpoint"`
	Deployment string            `json:"deployment" yaml:"deployment"`
	DeployTime string            `json:"deploy_time" yaml:"deploy_time"`
}

func NewDeployCommand(globals *cli.Globals) *cobra.Command {
	var (
		flags       buildFlags
		target      cli.TargetFlags
		fromHistory string
		reference   string
		payer       string
		chunkSize   int
	)

	cmd := &cobra.Command{
		Use:   "deploy [path]",
		Short: "Build and deploy a program",
		Long: `Build a program and submit it to a ledger network.

The bytecode is sent in chunks with submitProgram after a getHealth check.
The network and payer come from the flags, then program.deploy in the
project's forge.yml, then the config file.
The command succeeds only when the ledger acknowledges the whole program
under its identity. Failed submissions are not retried.

With --from-history the stored bytecode of an earlier build is deployed
without rebuilding. --ref selects a tag or digest prefix (default "latest").`,
		Example: `  # Build and deploy the current directory to the configured network
  forge deploy

  # Deploy to devnet, paying with a given account
  forge deploy --network devnet --payer 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin

  # Redeploy a tagged build from the local history to a custom node
  forge deploy --from-history <program-id> --ref v1.0.0 --url http://10.0.0.5:8899`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromHistory != "" && len(args) > 0 {
				return fmt.Errorf("--from-history cannot be combined with a source path")
			}

			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			var (
				historyID identity.Identity
				absPath   string
				opts      services.BuildOptions
			)
			if fromHistory != "" {
				if historyID, err = parseIdentity(fromHistory); err != nil {
					return err
				}
			} else {
				if absPath, err = resolvePath(args); err != nil {
					return err
				}
				if opts, err = flags.options(); err != nil {
					return err
				}
				if err := applyProjectDefaults(cfg, absPath); err != nil {
					return err
				}
			}

			if payer != "" {
				cfg.Deploy.Payer = payer
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.Deploy.ChunkSize = chunkSize
			}
			dest, err := target.Apply(cfg)
			if err != nil {
				return err
			}

			return globals.WithPrograms(cmd.Context(), cfg, func(programs services.ProgramService) error {
				start := time.Now()
				message := fmt.Sprintf("Building and deploying to %s...", dest.Network)
				if fromHistory != "" {
					message = fmt.Sprintf("Deploying %s to %s...", historyID, dest.Network)
				}

				result, err := operations.WithSpinner(message, !globals.Interactive() || flags.verbose,
					func(func(string)) (*services.DeployResult, error) {
						if fromHistory != "" {
							return programs.DeployFromHistory(cmd.Context(), historyID, reference, dest)
						}
						return programs.DeployProgram(cmd.Context(), absPath, dest, opts)
					})
				if err != nil {
					return err
				}

				view := deployView{
					Identity:   result.Identity,
					Digest:     result.Digest,
					Network:    result.Target.Network,
					Endpoint:   result.Target.Endpoint,
					Deployment: result.Record.ID,
					DeployTime: time.Since(start).Round(time.Millisecond).String(),
				}

				format, _ := globals.Format()
				return ui.PrintResult(format, view, func() {
					ui.PrintSuccess("Program deployed successfully")
					fmt.Println()
					ui.PrintMetadata("Identity ›", view.Identity.String())
					ui.PrintMetadata("Digest ›", view.Digest)
					ui.PrintMetadata("Network ›", fmt.Sprintf("%s (%s)", view.Network, view.Endpoint))
					fmt.Println()
					ui.PrintInfo("Deployment", view.Deployment)
					ui.PrintInfo("Time", view.DeployTime)
				})
			})
		},
	}

	flags.register(cmd)
	target.Register(cmd.Flags())
	cmd.Flags().StringVar(&fromHistory, "from-history", "", "Deploy a stored build of this program identity instead of building")
	cmd.Flags().StringVar(&reference, "ref", "", "Tag or digest prefix used with --from-history")
	cmd.Flags().StringVar(&payer, "payer", "", "Identity of the account paying for the deployment")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Bytes of bytecode per submission")

	return cmd
}
