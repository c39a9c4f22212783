package program

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/internal/ui/operations"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/spf13/cobra"
)

type buildView struct {
	Identity  identity.Identity `json:"identity" yaml:"identity"`
	Project   string            `json:"project" yaml:"project"`
	Digest    string            `json:"digest" yaml:"digest"`
	Size      int               `json:"size" yaml:"size"`
	Program   string            `json:"program" yaml:"program"`
	Tag       string            `json:"tag" yaml:"tag"`
	BuildTime string            `json:"build_time" yaml:"build_time"`
}

func NewBuildCommand(globals *cli.Globals) *cobra.Command {
	var (
		flags  buildFlags
		copyID bool
	)

	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Build a program",
		Long: `Build a program from its source tree.

The build process:

1. Runs the configured toolchain (cargo build-sbf by default) with the
   tree's Cargo.toml
2. Picks the compiled program from target/deploy
3. Assigns the program identity: --program-id, then program.id in
   forge.yml, then the identity mode
4. Records the build in the local history

The build never touches the network.`,
		Example: `  # Build the program in the current directory
  forge build

  # Build another tree and derive the identity from the bytecode
  forge build ./programs/vault --identity-mode content

  # Build, tag and copy the identity to the clipboard
  forge build -t v1.0.0 --copy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := resolvePath(args)
			if err != nil {
				return err
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			return globals.WithPrograms(cmd.Context(), cfg, func(programs services.ProgramService) error {
				start := time.Now()
				result, err := operations.WithSpinner("Building...", !globals.Interactive() || flags.verbose,
					func(func(string)) (*services.BuildResult, error) {
						return programs.BuildProgram(cmd.Context(), absPath, opts)
					})
				if err != nil {
					return err
				}

				view := buildView{
					Identity:  result.Artifact.Identity(),
					Project:   result.Project,
					Digest:    result.Digest,
					Size:      result.Artifact.Size(),
					Program:   result.Artifact.SourcePath(),
					Tag:       result.Tag,
					BuildTime: time.Since(start).Round(time.Millisecond).String(),
				}

				copied := false
				if copyID {
					if err := clipboard.WriteAll(view.Identity.String()); err != nil {
						ui.PrintWarning(fmt.Sprintf("could not copy identity: %v", err))
					} else {
						copied = true
					}
				}

				format, _ := globals.Format()
				return ui.PrintResult(format, view, func() {
					displayBuildResult(view, copied)
				})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&copyID, "copy", false, "Copy the program identity to the clipboard")

	return cmd
}

func displayBuildResult(view buildView, copied bool) {
	ui.PrintSuccess("Program built successfully")
	fmt.Println()

	ui.PrintMetadata("Identity ›", view.Identity.String())
	ui.PrintMetadata("Digest ›", view.Digest)
	ui.PrintMetadata("Tag ›", view.Tag)
	ui.PrintMetadata("Program ›", view.Program)
	fmt.Println()
	ui.PrintInfo("Size", fmt.Sprintf("%d bytes", view.Size))
	ui.PrintInfo("Build time", view.BuildTime)
	if copied {
		ui.PrintInfo("Clipboard", "identity copied")
	}
}
