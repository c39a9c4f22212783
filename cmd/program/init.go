package program

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/operations"
	"github.com/forgestack/forge/pkg/scaffold"
	"github.com/spf13/cobra"
)

func NewInitCommand(globals *cli.Globals) *cobra.Command {
	var (
		programID string
		network   string
		noGit     bool
	)

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new program project",
		Long: `Create a new program project in ./<name>.

The project contains a Cargo.toml for the SBF toolchain, a src/lib.rs entry
point that checks signers, ownership and arithmetic overflow, and a forge.yml
manifest. A git repository is initialized unless --no-git is given.

An existing directory is never touched.`,
		Example: `  # Create a project, prompting for the name
  forge init

  # Create a project with a pinned program identity
  forge init vault --program-id 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				if !globals.Interactive() {
					return errors.New("a project name is required")
				}
				if err := promptName(&name); err != nil {
					return err
				}
			}

			opts := scaffold.Options{Network: network, Git: !noGit}
			if programID != "" {
				id, err := parseIdentity(programID)
				if err != nil {
					return err
				}
				opts.ProgramID = &id
			}

			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			return globals.WithLedger(cmd.Context(), cfg, func(programs services.ProgramService) error {
				parent, err := os.Getwd()
				if err != nil {
					return err
				}

				project, err := operations.WithSpinner("Creating project...", !globals.Interactive(),
					func(func(string)) (*scaffold.Project, error) {
						return programs.InitProgram(parent, name, opts)
					})
				if err != nil {
					return err
				}

				format, _ := globals.Format()
				return ui.PrintResult(format, project, func() {
					ui.PrintSuccess(fmt.Sprintf("Created %s", project.Name))
					for _, f := range project.Files {
						fmt.Printf("  %s %s\n", ui.BulletSymbol, f)
					}
					fmt.Println()
					ui.PrintInfo("Next", fmt.Sprintf("cd %s && forge build", project.Name))
				})
			})
		},
	}

	cmd.Flags().StringVar(&programID, "program-id", "", "Pin the program identity in forge.yml")
	cmd.Flags().StringVarP(&network, "network", "n", "", "Default deploy network written to forge.yml")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "Do not initialize a git repository")

	return cmd
}

func promptName(name *string) error {
	baseStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ui.PrimaryColor))
	theme := huh.ThemeBase()
	theme.Focused.Title = baseStyle.Bold(true)
	theme.Focused.TextInput.Prompt = baseStyle

	input := huh.NewInput().
		Title("Project name").
		Value(name).
		Validate(scaffold.ValidateName)

	if err := huh.NewForm(huh.NewGroup(input)).WithTheme(theme).Run(); err != nil {
		return fmt.Errorf("error reading project name: %w", err)
	}
	return nil
}
