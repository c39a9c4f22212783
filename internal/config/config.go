package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/deploy"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Configuration constants
const (
	// DefaultConfigPath is the default path to the config file
	DefaultConfigPath = "~/.forge/config.yaml"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "FORGE_"
)

// Config holds all configuration for forge
type Config struct {
	// Network is a preset name, or "custom" to use RPC.URL
	Network string `koanf:"network" validate:"required"`

	RPC RPCConfig `koanf:"rpc"`

	Deploy DeployConfig `koanf:"deploy"`

	Toolchain builders.Toolchain `koanf:"toolchain"`

	Build BuildConfig `koanf:"build"`

	Registry RegistryConfig `koanf:"registry"`

	Log LogConfig `koanf:"log"`
}

// RPCConfig holds ledger endpoint settings
type RPCConfig struct {
	// URL overrides the network preset when set
	URL string `koanf:"url" validate:"omitempty,url"`

	// Per-request timeout, zero for none
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// DeployConfig holds deployment settings
type DeployConfig struct {
	ChunkSize int `koanf:"chunk_size" validate:"gte=1,lte=65536"`

	// Payer is the base58 identity of the paying account
	Payer string `koanf:"payer"`
}

// BuildConfig holds build settings
type BuildConfig struct {
	IdentityMode string `koanf:"identity_mode" validate:"oneof=random content"`
}

// RegistryConfig holds local history settings
type RegistryConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`

	// File receives logs instead of stderr when set
	File string `koanf:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		Network: NetworkLocalnet,
		RPC: RPCConfig{
			Timeout: 30 * time.Second,
		},
		Deploy: DeployConfig{
			ChunkSize: deploy.DefaultChunkSize,
		},
		Toolchain: builders.DefaultToolchain(),
		Build: BuildConfig{
			IdentityMode: string(builders.IdentityRandom),
		},
		Registry: RegistryConfig{
			Dir: filepath.Join(homeDir, ".forge", "registry"),
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// LoadConfig loads configuration from the specified path and environment variables
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Set default values
	if err := k.Load(newStructProvider(DefaultConfig()), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	knownKeys := k.Keys()

	// Try to load from config file (if it exists)
	expandedPath := ExpandPath(configPath)
	if _, err := os.Stat(expandedPath); err == nil {
		if err := k.Load(file.Provider(expandedPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load from environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper(knownKeys)), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into Config struct
	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &config,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Toolchain.Command == "" {
		return errors.New("invalid config: toolchain.command is required")
	}
	if c.Network == NetworkCustom && c.RPC.URL == "" {
		return errors.New("invalid config: network \"custom\" requires rpc.url")
	}
	if c.Network != NetworkCustom {
		if _, ok := LookupNetwork(c.Network); !ok {
			return fmt.Errorf("invalid config: unknown network %q", c.Network)
		}
	}
	if c.Deploy.Payer != "" {
		if _, err := identity.Parse(c.Deploy.Payer); err != nil {
			return fmt.Errorf("invalid config: deploy.payer: %w", err)
		}
	}

	return nil
}

// Endpoint returns the ledger URL to use: rpc.url when set, otherwise the
// preset of the configured network.
func (c *Config) Endpoint() string {
	if c.RPC.URL != "" {
		return c.RPC.URL
	}
	if n, ok := LookupNetwork(c.Network); ok {
		return n.URL
	}
	return ""
}

// Payer returns the configured payer, if any.
func (c *Config) Payer() (identity.Identity, bool) {
	if c.Deploy.Payer == "" {
		return identity.Zero, false
	}
	id, err := identity.Parse(c.Deploy.Payer)
	if err != nil {
		return identity.Zero, false
	}
	return id, true
}

// ExpandPath expands a leading "~/" to the home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// envKeyMapper turns FORGE_DEPLOY_CHUNK_SIZE into deploy.chunk_size. Keys
// that contain underscores are matched against the known keys first; the
// rest fall back to replacing every underscore with a dot.
func envKeyMapper(knownKeys []string) func(string) string {
	byEnv := make(map[string]string, len(knownKeys))
	for _, key := range knownKeys {
		byEnv[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := byEnv[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}

// structProvider is a provider that loads configuration from a struct
type structProvider struct {
	cfg interface{}
}

// newStructProvider creates a new struct provider
func newStructProvider(cfg interface{}) *structProvider {
	return &structProvider{cfg: cfg}
}

// Read reads the configuration from the struct
func (s *structProvider) Read() (map[string]interface{}, error) {
	var out map[string]interface{}

	// Use mapstructure to convert struct to map
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "koanf",
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(s.cfg); err != nil {
		return nil, err
	}

	return out, nil
}

// ReadBytes is required by the Provider interface but not used for struct providers
func (s *structProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not supported for struct provider")
}
