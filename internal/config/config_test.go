package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, NetworkLocalnet, cfg.Network)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Endpoint())
	assert.Equal(t, 1012, cfg.Deploy.ChunkSize)
	assert.Equal(t, "cargo", cfg.Toolchain.Command)
	assert.Equal(t, []string{"build-sbf"}, cfg.Toolchain.Args)
	assert.Equal(t, "random", cfg.Build.IdentityMode)
	assert.Equal(t, 30*time.Second, cfg.RPC.Timeout)
	assert.NotEmpty(t, cfg.Registry.Dir)

	_, ok := cfg.Payer()
	assert.False(t, ok)
}

func TestLoadConfigFile(t *testing.T) {
	payer := identity.Derive([]byte("payer"))
	path := writeConfig(t, `
network: devnet
rpc:
  timeout: 5s
deploy:
  chunk_size: 512
  payer: `+payer.String()+`
toolchain:
  command: cargo-build-sbf
  args: ["--arch", "sbfv2"]
build:
  identity_mode: content
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.devnet.solana.com", cfg.Endpoint())
	assert.Equal(t, 5*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 512, cfg.Deploy.ChunkSize)
	assert.Equal(t, "cargo-build-sbf", cfg.Toolchain.Command)
	assert.Equal(t, []string{"--arch", "sbfv2"}, cfg.Toolchain.Args)
	assert.Equal(t, "content", cfg.Build.IdentityMode)
	assert.Equal(t, "debug", cfg.Log.Level)

	got, ok := cfg.Payer()
	require.True(t, ok)
	assert.Equal(t, payer, got)
}

func TestLoadConfigEnv(t *testing.T) {
	path := writeConfig(t, "network: devnet\n")

	t.Setenv("FORGE_NETWORK", "mainnet-beta")
	t.Setenv("FORGE_DEPLOY_CHUNK_SIZE", "2048")
	t.Setenv("FORGE_RPC_TIMEOUT", "1m")
	t.Setenv("FORGE_TOOLCHAIN_ARGS", "build-sbf,--offline")
	t.Setenv("FORGE_BUILD_IDENTITY_MODE", "content")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, NetworkMainnetBeta, cfg.Network)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.Endpoint())
	assert.Equal(t, 2048, cfg.Deploy.ChunkSize)
	assert.Equal(t, time.Minute, cfg.RPC.Timeout)
	assert.Equal(t, []string{"build-sbf", "--offline"}, cfg.Toolchain.Args)
	assert.Equal(t, "content", cfg.Build.IdentityMode)
}

func TestLoadConfigRPCOverride(t *testing.T) {
	path := writeConfig(t, "network: devnet\nrpc:\n  url: http://10.0.0.5:8899\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8899", cfg.Endpoint())
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown network", content: "network: testnet-9\n"},
		{name: "custom without url", content: "network: custom\n"},
		{name: "bad url", content: "rpc:\n  url: not a url\n"},
		{name: "zero chunk size", content: "deploy:\n  chunk_size: 0\n"},
		{name: "bad identity mode", content: "build:\n  identity_mode: sequential\n"},
		{name: "bad payer", content: "deploy:\n  payer: 0OIl\n"},
		{name: "bad log level", content: "log:\n  level: chatty\n"},
		{name: "unknown key", content: "colour: blue\n"},
		{name: "empty toolchain", content: "toolchain:\n  command: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSaveNetwork(t *testing.T) {
	path := writeConfig(t, "deploy:\n  chunk_size: 256\n")

	require.NoError(t, SaveNetwork(path, NetworkDevnet, ""))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, NetworkDevnet, cfg.Network)
	assert.Equal(t, 256, cfg.Deploy.ChunkSize, "other settings survive")

	require.NoError(t, SaveNetwork(path, NetworkCustom, "http://10.1.1.1:8899"))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.1.1.1:8899", cfg.Endpoint())

	require.NoError(t, SaveNetwork(path, NetworkLocalnet, ""))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Endpoint(), "switching to a preset clears the custom url")

	assert.Error(t, SaveNetwork(path, "nowhere", ""))
	assert.Error(t, SaveNetwork(path, NetworkCustom, ""))
}

func TestSaveNetworkCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveNetwork(path, NetworkMainnetBeta, ""))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, NetworkMainnetBeta, cfg.Network)
}

func TestNetworks(t *testing.T) {
	networks := Networks()
	require.Len(t, networks, 3)

	networks[0].URL = "mutated"
	n, ok := LookupNetwork(NetworkLocalnet)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8899", n.URL)

	_, ok = LookupNetwork(NetworkCustom)
	assert.False(t, ok)
}

func TestEnvKeyMapper(t *testing.T) {
	mapper := envKeyMapper([]string{"deploy.chunk_size", "rpc.url", "network"})

	assert.Equal(t, "deploy.chunk_size", mapper("FORGE_DEPLOY_CHUNK_SIZE"))
	assert.Equal(t, "rpc.url", mapper("FORGE_RPC_URL"))
	assert.Equal(t, "network", mapper("FORGE_NETWORK"))
	assert.Equal(t, "some.other.key", mapper("FORGE_SOME_OTHER_KEY"))
}
