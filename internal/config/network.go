package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Network names
const (
	NetworkLocalnet    = "localnet"
	NetworkDevnet      = "devnet"
	NetworkMainnetBeta = "mainnet-beta"
	NetworkCustom      = "custom"
)

// Network is a named ledger endpoint.
type Network struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

var presets = []Network{
	{Name: NetworkLocalnet, URL: "http://127.0.0.1:8899"},
	{Name: NetworkDevnet, URL: "https://api.devnet.solana.com"},
	{Name: NetworkMainnetBeta, URL: "https://api.mainnet-beta.solana.com"},
}

// Networks returns the built-in network presets.
func Networks() []Network {
	return append([]Network(nil), presets...)
}

func LookupNetwork(name string) (Network, bool) {
	for _, n := range presets {
		if n.Name == name {
			return n, true
		}
	}
	return Network{}, false
}

// SaveNetwork records the network choice in the config file at configPath,
// keeping every other setting in the file. A preset clears rpc.url; the
// custom network stores url in it.
func SaveNetwork(configPath, name, url string) error {
	if name == NetworkCustom {
		if url == "" {
			return fmt.Errorf("network %q requires a URL", NetworkCustom)
		}
	} else if _, ok := LookupNetwork(name); !ok {
		return fmt.Errorf("unknown network %q", name)
	}

	path := ExpandPath(configPath)
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Set("network", name); err != nil {
		return err
	}
	if name == NetworkCustom {
		if err := k.Set("rpc.url", url); err != nil {
			return err
		}
	} else {
		k.Delete("rpc.url")
	}

	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
