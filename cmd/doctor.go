package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/ui"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/spf13/cobra"
)

const versionTimeout = 10 * time.Second

// minRustMinor is the oldest 1.x rustc that builds edition 2024 crates.
const minRustMinor = 85

type check struct {
	Name     string `json:"name" yaml:"name"`
	OK       bool   `json:"ok" yaml:"ok"`
	Required bool   `json:"required" yaml:"required"`
	Detail   string `json:"detail" yaml:"detail"`
	Warning  string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func NewDoctorCommand(globals *cli.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local toolchain and project",
		Long: `Check that the tools forge drives are installed.

Reports the versions of cargo, rustc and the solana CLI, whether the
configured build toolchain is on PATH, and whether the working directory
is a forge project. Fails when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := globals.Config()
			if err != nil {
				return err
			}

			checks := runChecks(cmd.Context(), cfg)

			format, _ := globals.Format()
			if err := ui.PrintResult(format, checks, func() {
				for _, c := range checks {
					ui.PrintInfo(c.Name, fmt.Sprintf("%s %s", ui.StyleCheck(c.OK), c.Detail))
					if c.Warning != "" {
						ui.PrintWarning(c.Warning)
					}
				}
			}); err != nil {
				return err
			}

			var failed []string
			for _, c := range checks {
				if c.Required && !c.OK {
					failed = append(failed, c.Name)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("required checks failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config) []check {
	checks := []check{
		versionCheck(ctx, "cargo", true),
		versionCheck(ctx, "rustc", true),
		versionCheck(ctx, "solana", false),
	}

	if rustc := &checks[1]; rustc.OK {
		if major, minor, ok := parseRustVersion(rustc.Detail); ok && major == 1 && minor < minRustMinor {
			rustc.Warning = fmt.Sprintf("rust 1.%d.0+ is required for edition 2024 crates (rustup update stable)", minRustMinor)
		}
	}

	toolchain := check{Name: "toolchain", Required: true}
	if path, err := exec.LookPath(cfg.Toolchain.Command); err != nil {
		toolchain.Detail = fmt.Sprintf("%s not found on PATH", cfg.Toolchain.Command)
	} else {
		toolchain.OK = true
		toolchain.Detail = strings.TrimSpace(path + " " + strings.Join(cfg.Toolchain.Args, " "))
	}
	checks = append(checks, toolchain)

	project := check{Name: "project"}
	cwd, err := os.Getwd()
	if err == nil {
		var m *manifest.ProgramManifest
		m, err = manifest.Load(cwd)
		if err == nil {
			project.OK = true
			project.Detail = fmt.Sprintf("%s (%s)", m.ProgramSettings.Name, manifest.FileName)
		}
	}
	switch {
	case errors.Is(err, manifest.ErrNotAProject):
		project.Detail = fmt.Sprintf("no %s in the working directory", manifest.FileName)
	case err != nil:
		project.Detail = err.Error()
	}
	checks = append(checks, project)

	return checks
}

func versionCheck(ctx context.Context, tool string, required bool) check {
	c := check{Name: tool, Required: required}

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, tool, "--version").Output()
	if err != nil {
		c.Detail = fmt.Sprintf("%s not available: %v", tool, err)
		return c
	}

	c.OK = true
	c.Detail = strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	return c
}

var rustVersionPattern = regexp.MustCompile(`rustc (\d+)\.(\d+)\.(\d+)`)

func parseRustVersion(s string) (major, minor int, ok bool) {
	m := rustVersionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	return major, minor, true
}
