package program

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/registry"
	"github.com/spf13/cobra"
)

func NewHistoryCommand(globals *cli.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [program-id]",
		Short: "List recorded builds and deployments",
		Long: `List the programs in the local history.

Every build is stored with its digest and tags, and every successful
deployment is recorded with its network and endpoint. With a program
identity, its versions and deployments are listed.`,
		Example: `  # List all programs
  forge history

  # Show the versions and deployments of one program
  forge history 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		Aliases: []string{"ls"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *identity.Identity
			if len(args) > 0 {
				parsed, err := parseIdentity(args[0])
				if err != nil {
					return err
				}
				id = &parsed
			}

			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			return globals.WithPrograms(cmd.Context(), cfg, func(programs services.ProgramService) error {
				history, err := programs.History(id)
				if err != nil {
					return err
				}

				format, _ := globals.Format()
				return ui.PrintResult(format, history, func() {
					if id != nil {
						displayProgram(history[0])
						return
					}
					displayPrograms(history)
				})
			})
		},
	}

	return cmd
}

func displayPrograms(programs []registry.ProgramMetadata) {
	if len(programs) == 0 {
		ui.PrintEmptyState("No programs recorded yet. Run forge build to add one.")
		return
	}

	table := ui.NewTable([]string{"IDENTITY", "PROJECT", "LATEST", "VERSIONS", "DEPLOYMENTS", "UPDATED"})
	for _, p := range programs {
		latest := "-"
		if v, ok := p.LatestVersion(); ok {
			latest = v.Hash
		}
		table.AddRow(
			p.Identity.String(),
			p.Project,
			latest,
			strconv.Itoa(len(p.Versions)),
			strconv.Itoa(len(p.Deployments)),
			p.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Print(ui.RenderTable(table))
}

func displayProgram(p registry.ProgramMetadata) {
	ui.PrintMetadata("Program ›", p.Identity.String())
	if p.Project != "" {
		ui.PrintMetadata("Project ›", p.Project)
	}

	versions := ui.NewTable([]string{"DIGEST", "TAGS", "SIZE", "CREATED"})
	for _, v := range p.Versions {
		tags := strings.Join(v.Tags, ", ")
		if tags == "" {
			tags = "-"
		}
		versions.AddRow(v.Hash, tags, fmt.Sprintf("%d", v.Size), v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Print(ui.RenderTable(versions))

	if len(p.Deployments) == 0 {
		ui.PrintEmptyState("Never deployed")
		return
	}

	deployments := ui.NewTable([]string{"DEPLOYMENT", "DIGEST", "NETWORK", "ENDPOINT", "DEPLOYED"})
	for _, d := range p.Deployments {
		deployments.AddRow(
			d.ID,
			registry.TruncateDigest(d.Digest, registry.ShortDigestLength),
			d.Network,
			d.Endpoint,
			d.DeployedAt.Format("2006-01-02 15:04:05"),
		)
	}
	fmt.Print(ui.RenderTable(deployments))
}
