package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/spf13/cobra"
)

// lamportsPerSOL converts balances for display.
const lamportsPerSOL = 1_000_000_000

// resolvePath returns the absolute source tree named by args, or the working
// directory.
func resolvePath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("path %s does not exist", absPath)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %s is not a directory", absPath)
	}

	return absPath, nil
}

func parseIdentity(s string) (identity.Identity, error) {
	id, err := identity.Parse(s)
	if err != nil {
		return identity.Zero, fmt.Errorf("invalid program identity %q: %w", s, err)
	}
	return id, nil
}

// buildFlags are shared by build and deploy.
type buildFlags struct {
	programID    string
	identityMode string
	tag          string
	verbose      bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.programID, "program-id", "", "Use this program identity instead of forge.yml or the identity mode")
	cmd.Flags().StringVar(&f.identityMode, "identity-mode", "", "How to assign an identity when none is pinned (random, content)")
	cmd.Flags().StringVarP(&f.tag, "tag", "t", "", "Tag the build in the local history (default \"latest\")")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Stream toolchain output to stderr")
}

func (f *buildFlags) options() (services.BuildOptions, error) {
	opts := services.BuildOptions{Tag: f.tag}

	if f.programID != "" {
		id, err := parseIdentity(f.programID)
		if err != nil {
			return opts, err
		}
		opts.ProgramID = &id
	}

	switch mode := builders.IdentityMode(f.identityMode); mode {
	case "", builders.IdentityRandom, builders.IdentityContent:
		opts.IdentityMode = mode
	default:
		return opts, fmt.Errorf("unknown identity mode %q (want random or content)", f.identityMode)
	}

	if f.verbose {
		opts.Output = os.Stderr
	}

	return opts, nil
}

// applyProjectDefaults layers program.deploy from the forge.yml in dir over
// cfg. Command flags are applied after it.
func applyProjectDefaults(cfg *config.Config, dir string) error {
	m, err := manifest.Load(dir)
	if errors.Is(err, manifest.ErrNotAProject) {
		return nil
	}
	if err != nil {
		return err
	}

	settings := m.ProgramSettings.DeploySettings
	if settings.Network != "" {
		cfg.Network = settings.Network
		if settings.Network != config.NetworkCustom {
			cfg.RPC.URL = ""
		}
	}
	if settings.Payer != "" {
		cfg.Deploy.Payer = settings.Payer
	}
	return nil
}

func formatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d SOL", lamports/lamportsPerSOL, lamports%lamportsPerSOL)
}
