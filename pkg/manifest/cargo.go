package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// CargoFileName is the toolchain manifest the builder hands to the compiler.
const CargoFileName = "Cargo.toml"

type CargoManifest struct {
	Package CargoPackage `toml:"package"`
	Lib     CargoLib     `toml:"lib"`

	Dependencies map[string]interface{} `toml:"dependencies,omitempty"`
}

type CargoPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition,omitempty"`
}

type CargoLib struct {
	Name      string   `toml:"name,omitempty"`
	CrateType []string `toml:"crate-type,omitempty"`
}

// ArtifactName is the file stem the compiler gives the program binary: the
// [lib] name when set, otherwise the package name with dashes replaced.
func (c *CargoManifest) ArtifactName() string {
	if c.Lib.Name != "" {
		return c.Lib.Name
	}
	return strings.ReplaceAll(c.Package.Name, "-", "_")
}

func LoadCargo(dir string) (*CargoManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, CargoFileName))
	if err != nil {
		return nil, err
	}

	var cargo CargoManifest
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", CargoFileName, err)
	}
	return &cargo, nil
}

func WriteCargo(dir string, cargo *CargoManifest) error {
	f, err := os.Create(filepath.Join(dir, CargoFileName))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", CargoFileName, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cargo); err != nil {
		return fmt.Errorf("failed to write %s: %w", CargoFileName, err)
	}
	return nil
}
