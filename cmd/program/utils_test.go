package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgestack/forge/internal/cli"
	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/services"
	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "0.000000000 SOL", formatSOL(0))
	assert.Equal(t, "1.000000000 SOL", formatSOL(lamportsPerSOL))
	assert.Equal(t, "0.001141440 SOL", formatSOL(1_141_440))
	assert.Equal(t, "12.500000000 SOL", formatSOL(12_500_000_000))
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()

	got, err := resolvePath([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = resolvePath([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "does not exist")

	file := filepath.Join(dir, "lib.rs")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = resolvePath([]string{file})
	assert.ErrorContains(t, err, "not a directory")
}

func TestBuildFlagsOptions(t *testing.T) {
	id, err := identity.New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		flags   buildFlags
		wantErr string
		check   func(t *testing.T, opts services.BuildOptions)
	}{
		{
			name:  "defaults",
			flags: buildFlags{},
			check: func(t *testing.T, opts services.BuildOptions) {
				assert.Nil(t, opts.ProgramID)
				assert.Equal(t, builders.IdentityMode(""), opts.IdentityMode)
				assert.Nil(t, opts.Output)
			},
		},
		{
			name:  "pinned identity and content mode",
			flags: buildFlags{programID: id.String(), identityMode: "content", tag: "v1"},
			check: func(t *testing.T, opts services.BuildOptions) {
				require.NotNil(t, opts.ProgramID)
				assert.Equal(t, id, *opts.ProgramID)
				assert.Equal(t, builders.IdentityContent, opts.IdentityMode)
				assert.Equal(t, "v1", opts.Tag)
			},
		},
		{
			name:  "verbose streams to stderr",
			flags: buildFlags{verbose: true},
			check: func(t *testing.T, opts services.BuildOptions) {
				assert.Equal(t, os.Stderr, opts.Output)
			},
		},
		{
			name:    "bad identity",
			flags:   buildFlags{programID: "not-base58!"},
			wantErr: "invalid program identity",
		},
		{
			name:    "bad mode",
			flags:   buildFlags{identityMode: "sequential"},
			wantErr: "unknown identity mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.flags.options()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestApplyProjectDefaults(t *testing.T) {
	payer, err := identity.New()
	require.NoError(t, err)

	writeProject := func(t *testing.T, deploy manifest.ProgramDeploySettings) string {
		dir := t.TempDir()
		require.NoError(t, manifest.Write(dir, &manifest.ProgramManifest{
			ProgramSettings: manifest.ProgramSettings{Name: "vault", DeploySettings: deploy},
		}))
		return dir
	}

	t.Run("forge.yml over config", func(t *testing.T) {
		dir := writeProject(t, manifest.ProgramDeploySettings{Network: config.NetworkDevnet, Payer: payer.String()})
		cfg := config.DefaultConfig()
		cfg.RPC.URL = "http://127.0.0.1:9999"

		require.NoError(t, applyProjectDefaults(cfg, dir))
		dest, err := cli.TargetFlags{}.Apply(cfg)
		require.NoError(t, err)

		assert.Equal(t, config.NetworkDevnet, dest.Network)
		assert.Equal(t, "https://api.devnet.solana.com", dest.Endpoint)
		got, ok := cfg.Payer()
		require.True(t, ok)
		assert.Equal(t, payer, got)
	})

	t.Run("flags over forge.yml", func(t *testing.T) {
		dir := writeProject(t, manifest.ProgramDeploySettings{Network: config.NetworkDevnet})
		cfg := config.DefaultConfig()

		require.NoError(t, applyProjectDefaults(cfg, dir))
		dest, err := cli.TargetFlags{Network: config.NetworkMainnetBeta}.Apply(cfg)
		require.NoError(t, err)
		assert.Equal(t, config.NetworkMainnetBeta, dest.Network)
	})

	t.Run("no forge.yml keeps config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		require.NoError(t, applyProjectDefaults(cfg, t.TempDir()))
		assert.Equal(t, config.NetworkLocalnet, cfg.Network)
		assert.Empty(t, cfg.Deploy.Payer)
	})
}
