package builders

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	forgeerrors "github.com/forgestack/forge/pkg/errors"
	"github.com/forgestack/forge/pkg/manifest"
)

// SelectProgram picks the compiled program in <sourceTree>/target/deploy.
//
// When Cargo.toml names the library and <name>.so exists, that file wins.
// Otherwise the lexicographically first *.so file name is used, so the choice
// never depends on directory enumeration order.
func SelectProgram(sourceTree string) (string, error) {
	dir := filepath.Join(sourceTree, OutputDir)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", forgeerrors.New(forgeerrors.DomainBuild, forgeerrors.CodeNoArtifactProduced,
			"output directory does not exist").WithPath(dir)
	}
	if err != nil {
		return "", forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
			"failed to scan output directory", err).WithPath(dir)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ProgramExtension) {
			continue
		}
		candidates = append(candidates, entry.Name())
	}

	if len(candidates) == 0 {
		return "", forgeerrors.New(forgeerrors.DomainBuild, forgeerrors.CodeNoArtifactProduced,
			"no compiled program found").WithPath(dir)
	}

	if cargo, err := manifest.LoadCargo(sourceTree); err == nil {
		if name := cargo.ArtifactName(); name != "" {
			preferred := name + ProgramExtension
			for _, candidate := range candidates {
				if candidate == preferred {
					return filepath.Join(dir, candidate), nil
				}
			}
		}
	}

	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}
