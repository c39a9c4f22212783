package network

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/operations"
	"github.com/forgestack/forge/pkg/ledger"
	"github.com/spf13/cobra"
)

type networkView struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url" yaml:"url"`
	Current bool   `json:"current" yaml:"current"`
	Healthy *bool  `json:"healthy,omitempty" yaml:"healthy,omitempty"`
	Problem string `json:"error,omitempty" yaml:"error,omitempty"`
}

func NewNetworkCommand(globals *cli.Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Manage the ledger network",
		Long: `Show and select the ledger network used by deploy and status.

The presets are localnet, devnet and mainnet-beta. Any other node is
selected with "network use custom --url <url>".`,
	}

	cmd.AddCommand(newListCommand(globals))
	cmd.AddCommand(newUseCommand(globals))
	cmd.AddCommand(newShowCommand(globals))

	return cmd
}

func newListCommand(globals *cli.Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List the network presets",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			var views []networkView
			for _, n := range config.Networks() {
				views = append(views, networkView{Name: n.Name, URL: n.URL, Current: n.Name == cfg.Network})
			}
			if cfg.Network == config.NetworkCustom {
				views = append(views, networkView{Name: config.NetworkCustom, URL: cfg.Endpoint(), Current: true})
			}

			format, _ := globals.Format()
			return ui.PrintResult(format, views, func() {
				table := ui.NewTable([]string{"", "NAME", "URL"})
				for _, v := range views {
					marker := ""
					if v.Current {
						marker = ui.BulletSymbol
					}
					table.AddRow(marker, v.Name, v.URL)
				}
				fmt.Print(ui.RenderTable(table))
			})
		},
	}
}

func newUseCommand(globals *cli.Globals) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "use [name]",
		Short: "Select the default network",
		Example: `  # Pick a preset interactively
  forge network use

  # Use devnet
  forge network use devnet

  # Use a private node
  forge network use custom --url http://10.0.0.5:8899`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" && url != "" {
				name = config.NetworkCustom
			}
			if name == "" {
				if !globals.Interactive() {
					return errors.New("a network name is required")
				}
				if err := selectNetwork(&name); err != nil {
					return err
				}
			}

			if err := config.SaveNetwork(globals.ConfigPath, name, url); err != nil {
				return err
			}

			cfg, err := globals.Config()
			if err != nil {
				return err
			}
			view := networkView{Name: cfg.Network, URL: cfg.Endpoint(), Current: true}

			format, _ := globals.Format()
			return ui.PrintResult(format, view, func() {
				ui.PrintSuccess(fmt.Sprintf("Using %s (%s)", view.Name, view.URL))
			})
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "RPC URL for the custom network")

	return cmd
}

func newShowCommand(globals *cli.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current network and check its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			return globals.WithLedger(cmd.Context(), cfg, func(programs services.ProgramService) error {
				view := networkView{Name: cfg.Network, URL: cfg.Endpoint(), Current: true}

				_, checkErr := operations.WithSpinner("Checking endpoint...", !globals.Interactive(),
					func(func(string)) (struct{}, error) {
						return struct{}{}, programs.CheckEndpoint(cmd.Context(), view.URL)
					})
				healthy := checkErr == nil
				view.Healthy = &healthy
				view.Problem = describeHealth(checkErr)

				format, _ := globals.Format()
				return ui.PrintResult(format, view, func() {
					ui.PrintMetadata("Network ›", view.Name)
					ui.PrintMetadata("Endpoint ›", view.URL)
					fmt.Println()
					ui.PrintInfo("Health", ui.StyleCheck(healthy))
					if view.Problem != "" {
						ui.PrintWarning(view.Problem)
					}
				})
			})
		},
	}
}

// describeHealth tells a node that answered unhealthy apart from one that
// could not be reached.
func describeHealth(err error) string {
	switch {
	case err == nil:
		return ""
	case ledger.IsRPC(err):
		return fmt.Sprintf("node answered but is not healthy: %v", err)
	default:
		return fmt.Sprintf("node unreachable: %v", err)
	}
}

func selectNetwork(name *string) error {
	baseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ui.PrimaryColor))
	theme := huh.ThemeBase()
	theme.Focused.Title = baseStyle.Bold(true)
	theme.Focused.SelectedOption = baseStyle
	theme.Focused.SelectSelector = baseStyle

	var options []huh.Option[string]
	for _, n := range config.Networks() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", n.Name, n.URL), n.Name))
	}

	sel := huh.NewSelect[string]().
		Title("Select a network").
		Options(options...).
		Value(name)

	if err := huh.NewForm(huh.NewGroup(sel)).WithTheme(theme).Run(); err != nil {
		return fmt.Errorf("error selecting network: %w", err)
	}
	return nil
}
