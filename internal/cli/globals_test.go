package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgestack/forge/internal/config"
	"github.com/forgestack/forge/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestTargetFlags(t *testing.T) {
	tests := []struct {
		name       string
		configured func(*config.Config)
		flags      TargetFlags
		network    string
		endpoint   string
		wantErr    bool
	}{
		{
			name:     "config defaults",
			network:  config.NetworkLocalnet,
			endpoint: "http://127.0.0.1:8899",
		},
		{
			name:     "network preset",
			flags:    TargetFlags{Network: config.NetworkDevnet},
			network:  config.NetworkDevnet,
			endpoint: "https://api.devnet.solana.com",
		},
		{
			name: "preset drops configured url",
			configured: func(c *config.Config) {
				c.Network = config.NetworkCustom
				c.RPC.URL = "http://10.0.0.1:8899"
			},
			flags:    TargetFlags{Network: config.NetworkMainnetBeta},
			network:  config.NetworkMainnetBeta,
			endpoint: "https://api.mainnet-beta.solana.com",
		},
		{
			name:     "url alone is custom",
			flags:    TargetFlags{URL: "http://10.0.0.2:8899"},
			network:  config.NetworkCustom,
			endpoint: "http://10.0.0.2:8899",
		},
		{
			name: "url alone on a preset with a configured url",
			configured: func(c *config.Config) {
				c.Network = config.NetworkDevnet
				c.RPC.URL = "http://10.0.0.1:8899"
			},
			flags:    TargetFlags{URL: "http://10.0.0.2:8899"},
			network:  config.NetworkCustom,
			endpoint: "http://10.0.0.2:8899",
		},
		{
			name:     "url with network keeps the name",
			flags:    TargetFlags{Network: config.NetworkDevnet, URL: "http://10.0.0.3:8899"},
			network:  config.NetworkDevnet,
			endpoint: "http://10.0.0.3:8899",
		},
		{
			name:    "unknown network",
			flags:   TargetFlags{Network: "moonnet"},
			wantErr: true,
		},
		{
			name:    "bad url",
			flags:   TargetFlags{URL: "::"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.configured != nil {
				tt.configured(cfg)
			}

			target, err := tt.flags.Apply(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.network, target.Network)
			assert.Equal(t, tt.endpoint, target.Endpoint)
		})
	}
}

func TestTargetFlagsRegister(t *testing.T) {
	var target TargetFlags
	fs := pflag.NewFlagSet("deploy", pflag.ContinueOnError)
	target.Register(fs)

	require.NoError(t, fs.Parse([]string{"-n", "devnet", "--url", "http://10.0.0.5:8899"}))
	assert.Equal(t, "devnet", target.Network)
	assert.Equal(t, "http://10.0.0.5:8899", target.URL)
}

func TestGlobalsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	g := &Globals{ConfigPath: path}
	cfg, err := g.Config()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)

	g.LogLevel = "debug"
	cfg, err = g.Config()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	g.LogLevel = "loud"
	_, err = g.Config()
	assert.Error(t, err)
}

func TestGlobalsInteractive(t *testing.T) {
	assert.True(t, (&Globals{Output: "text"}).Interactive())
	assert.False(t, (&Globals{Output: "text", Plain: true}).Interactive())
	assert.False(t, (&Globals{Output: "json"}).Interactive())

	format, err := (&Globals{Output: "yaml"}).Format()
	require.NoError(t, err)
	assert.Equal(t, ui.FormatYAML, format)
}
