package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/go-git/go-git/v5"
)

//go:embed templates/*.tmpl
var templates embed.FS

// SolanaProgramVersion is the program SDK version written into new projects.
const SolanaProgramVersion = "1.18"

var (
	ErrInvalidName   = errors.New("invalid project name")
	ErrAlreadyExists = errors.New("directory already exists")

	namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)
)

// Options for creating a project
type Options struct {
	// ProgramID pins the program identity in forge.yml.
	ProgramID *identity.Identity

	// Network is written as the project's default deploy network.
	Network string

	// Git initializes a repository in the new project.
	Git bool
}

// Project describes a created project.
type Project struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`

	// Files lists created paths relative to Path.
	Files []string `json:"files" yaml:"files"`
}

// ValidateName checks that name can be used as a Cargo package name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a lowercase letter and contain only lowercase letters, digits, '-' or '_'", ErrInvalidName, name)
	}
	return nil
}

// Init creates a new program project named name under parent. It never
// touches an existing directory.
func Init(parent, name string, opts Options) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(parent, name)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}

	if err := os.MkdirAll(filepath.Join(path, "src"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	project := &Project{Name: name, Path: path}

	if err := manifest.WriteCargo(path, cargoManifest(name)); err != nil {
		return nil, err
	}
	project.Files = append(project.Files, manifest.CargoFileName)

	if err := createManifestFile(path, name, opts); err != nil {
		return nil, err
	}
	project.Files = append(project.Files, manifest.FileName)

	files := []struct {
		template string
		target   string
	}{
		{"templates/lib.rs.tmpl", filepath.Join("src", "lib.rs")},
		{"templates/gitignore.tmpl", ".gitignore"},
	}
	for _, f := range files {
		if err := renderFile(path, f.template, f.target, project); err != nil {
			return nil, err
		}
		project.Files = append(project.Files, f.target)
	}

	if opts.Git {
		if _, err := git.PlainInit(path, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repository: %w", err)
		}
	}

	return project, nil
}

func cargoManifest(name string) *manifest.CargoManifest {
	return &manifest.CargoManifest{
		Package: manifest.CargoPackage{
			Name:    name,
			Version: "0.1.0",
			Edition: "2021",
		},
		Lib: manifest.CargoLib{
			Name:      strings.ReplaceAll(name, "-", "_"),
			CrateType: []string{"cdylib", "lib"},
		},
		Dependencies: map[string]interface{}{
			"solana-program": SolanaProgramVersion,
		},
	}
}

// createManifestFile writes forge.yml for the project
func createManifestFile(path, name string, opts Options) error {
	m := &manifest.ProgramManifest{
		ProgramSettings: manifest.ProgramSettings{
			Name: name,
			DeploySettings: manifest.ProgramDeploySettings{
				Network: opts.Network,
			},
		},
	}
	if opts.ProgramID != nil {
		m.ProgramSettings.ID = opts.ProgramID.String()
	}
	return manifest.Write(path, m)
}

func renderFile(root, name, target string, project *Project) error {
	tmpl, err := template.ParseFS(templates, name)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, project); err != nil {
		return fmt.Errorf("failed to render %s: %w", target, err)
	}

	if err := os.WriteFile(filepath.Join(root, target), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
