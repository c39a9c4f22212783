package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgestack/forge/pkg/identity"
	"gopkg.in/yaml.v2"
)

// FileName is the project manifest every forge source tree carries.
const FileName = "forge.yml"

var ErrNotAProject = errors.New("not a forge project")

type ProgramManifest struct {
	ProgramSettings ProgramSettings `yaml:"program"`
}

type ProgramSettings struct {
	Name string `yaml:"name"`

	// ID pins the program identity. Empty means the builder assigns one.
	ID string `yaml:"id,omitempty"`

	DeploySettings ProgramDeploySettings `yaml:"deploy"`
}

type ProgramDeploySettings struct {
	Network string `yaml:"network,omitempty"`
	Payer   string `yaml:"payer,omitempty"`
}

// Identity returns the pinned program identity, if any.
func (m *ProgramManifest) Identity() (identity.Identity, bool, error) {
	if m.ProgramSettings.ID == "" {
		return identity.Zero, false, nil
	}
	id, err := identity.Parse(m.ProgramSettings.ID)
	if err != nil {
		return identity.Zero, false, fmt.Errorf("invalid program id in %s: %w", FileName, err)
	}
	return id, true, nil
}

func (m *ProgramManifest) MarshalYaml() ([]byte, error) {
	return yaml.Marshal(m)
}

// Load reads forge.yml from dir. A missing file is ErrNotAProject.
func Load(dir string) (*ProgramManifest, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNotAProject, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var m ProgramManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &m, nil
}

// Write stores m as forge.yml in dir.
func Write(dir string, m *ProgramManifest) error {
	data, err := m.MarshalYaml()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}
