package builders

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	forgeerrors "github.com/forgestack/forge/pkg/errors"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// shellToolchain runs script with sh. The builder's trailing
// "--manifest-path <path>" arguments arrive as $1 and $2.
func shellToolchain(t *testing.T, script string) Toolchain {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return Toolchain{Command: "sh", Args: []string{"-c", script, "fake-build-sbf"}}
}

func setupSourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, manifest.WriteCargo(dir, &manifest.CargoManifest{
		Package: manifest.CargoPackage{Name: "forge-program", Version: "0.1.0", Edition: "2021"},
		Lib:     manifest.CargoLib{CrateType: []string{"cdylib", "lib"}},
	}))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte("// program\n"), 0644))
	return dir
}

func newTestBuilder(t *testing.T, toolchain Toolchain) *Options {
	return DefaultOptions().
		WithToolchain(toolchain).
		WithLogger(zaptest.NewLogger(t))
}

const emitProgram = `mkdir -p target/deploy && printf '\177ELF-program-bytes' > target/deploy/forge_program.so`

func TestBuild(t *testing.T) {
	dir := setupSourceTree(t)
	builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)))

	artifact, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	programPath := filepath.Join(dir, "target", "deploy", "forge_program.so")
	onDisk, err := os.ReadFile(programPath)
	require.NoError(t, err)

	assert.Equal(t, onDisk, artifact.Bytecode())
	assert.NotEmpty(t, artifact.Bytecode())
	assert.Equal(t, programPath, artifact.SourcePath())

	id := artifact.Identity()
	assert.False(t, id.IsZero())
	parsed, err := identity.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestBuildPassesManifestPath(t *testing.T) {
	dir := setupSourceTree(t)
	script := `mkdir -p target/deploy && printf '%s %s' "$1" "$2" > target/deploy/args.so`
	builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, script)))

	artifact, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "--manifest-path "+filepath.Join(dir, "Cargo.toml"), string(artifact.Bytecode()))
}

func TestBuildToolchainFailure(t *testing.T) {
	dir := setupSourceTree(t)
	script := emitProgram + `; echo 'error[E0425]: cannot find value x in this scope' >&2; exit 101`
	var output bytes.Buffer
	builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, script)).WithOutput(&output))

	artifact, err := builder.Build(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, artifact, "a failed build must not return a partial artifact")
	assert.True(t, forgeerrors.IsToolchainFailure(err))
	assert.ErrorIs(t, err, forgeerrors.ErrToolchainFailure)
	assert.Contains(t, err.Error(), "error[E0425]: cannot find value x in this scope")

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "error[E0425]: cannot find value x in this scope", buildErr.Stderr)
	assert.Equal(t, "compile", buildErr.Step)

	assert.Contains(t, output.String(), "error[E0425]", "stderr should be teed to the output writer")
}

func TestBuildMissingToolchain(t *testing.T) {
	dir := setupSourceTree(t)
	builder := NewSBFBuilder(newTestBuilder(t, Toolchain{Command: "forge-toolchain-that-does-not-exist"}))

	artifact, err := builder.Build(context.Background(), dir)
	assert.Nil(t, artifact)
	assert.True(t, forgeerrors.IsToolchainFailure(err))
	assert.True(t, forgeerrors.IsToolchainFailure(builder.VerifyDependencies()))
}

func TestBuildNoArtifact(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "no output directory", script: "true"},
		{name: "empty output directory", script: "mkdir -p target/deploy"},
		{name: "only keypair", script: `mkdir -p target/deploy && echo '[1,2,3]' > target/deploy/forge_program-keypair.json`},
		{name: "directory named like a program", script: "mkdir -p target/deploy/fake.so"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupSourceTree(t)
			builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, tt.script)))

			artifact, err := builder.Build(context.Background(), dir)
			assert.Nil(t, artifact)
			assert.True(t, forgeerrors.IsNoArtifactProduced(err), "got %v", err)
		})
	}
}

func TestBuildEmptyProgram(t *testing.T) {
	dir := setupSourceTree(t)
	builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, `mkdir -p target/deploy && : > target/deploy/forge_program.so`)))

	artifact, err := builder.Build(context.Background(), dir)
	assert.Nil(t, artifact)
	assert.True(t, forgeerrors.IsIOFailure(err))
}

func TestSelectProgram(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		libName  string
		expected string
	}{
		{
			name:     "single program",
			files:    []string{"forge_program.so"},
			expected: "forge_program.so",
		},
		{
			name:     "lexicographically first without a cargo match",
			files:    []string{"zeta.so", "alpha.so", "mid.so"},
			expected: "alpha.so",
		},
		{
			name:     "cargo lib name wins",
			files:    []string{"alpha.so", "vault.so"},
			libName:  "vault",
			expected: "vault.so",
		},
		{
			name:     "cargo lib name missing from output",
			files:    []string{"beta.so", "alpha.so"},
			libName:  "vault",
			expected: "alpha.so",
		},
		{
			name:     "non-program files ignored",
			files:    []string{"a-keypair.json", "b.so", "a.so.map"},
			expected: "b.so",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.libName != "" {
				require.NoError(t, manifest.WriteCargo(dir, &manifest.CargoManifest{
					Package: manifest.CargoPackage{Name: "whatever"},
					Lib:     manifest.CargoLib{Name: tt.libName},
				}))
			}

			out := filepath.Join(dir, OutputDir)
			require.NoError(t, os.MkdirAll(out, 0755))
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(out, f), []byte(f), 0644))
			}

			selected, err := SelectProgram(dir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(out, tt.expected), selected)
		})
	}
}

func TestBuildIdentityAssignment(t *testing.T) {
	injected := identity.Derive([]byte("injected"))
	pinned := identity.Derive([]byte("pinned"))

	t.Run("injected identity wins over manifest", func(t *testing.T) {
		dir := setupSourceTree(t)
		require.NoError(t, manifest.Write(dir, &manifest.ProgramManifest{
			ProgramSettings: manifest.ProgramSettings{Name: "p", ID: pinned.String()},
		}))
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)).WithIdentity(injected))

		artifact, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, injected, artifact.Identity())
	})

	t.Run("manifest pins identity", func(t *testing.T) {
		dir := setupSourceTree(t)
		require.NoError(t, manifest.Write(dir, &manifest.ProgramManifest{
			ProgramSettings: manifest.ProgramSettings{Name: "p", ID: pinned.String()},
		}))
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)))

		artifact, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, pinned, artifact.Identity())
	})

	t.Run("invalid pinned identity", func(t *testing.T) {
		dir := setupSourceTree(t)
		require.NoError(t, manifest.Write(dir, &manifest.ProgramManifest{
			ProgramSettings: manifest.ProgramSettings{Name: "p", ID: "bogus"},
		}))
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)))

		artifact, err := builder.Build(context.Background(), dir)
		assert.Nil(t, artifact)
		assert.True(t, forgeerrors.IsIOFailure(err))
	})

	t.Run("unknown identity mode", func(t *testing.T) {
		dir := setupSourceTree(t)
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)).WithIdentityMode("sequential"))

		artifact, err := builder.Build(context.Background(), dir)
		assert.Nil(t, artifact)
		assert.True(t, forgeerrors.IsInvalidOptions(err))
		assert.ErrorIs(t, err, forgeerrors.ErrInvalidOptions)
		assert.ErrorContains(t, err, `"sequential"`)
	})

	t.Run("content mode is deterministic", func(t *testing.T) {
		dir := setupSourceTree(t)
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)).WithIdentityMode(IdentityContent))

		first, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)
		second, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)

		assert.Equal(t, first.Identity(), second.Identity())
		assert.Equal(t, identity.Derive(first.Bytecode()), first.Identity())
	})

	t.Run("random mode differs per build", func(t *testing.T) {
		dir := setupSourceTree(t)
		builder := NewSBFBuilder(newTestBuilder(t, shellToolchain(t, emitProgram)))

		first, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)
		second, err := builder.Build(context.Background(), dir)
		require.NoError(t, err)

		assert.NotEqual(t, first.Identity(), second.Identity())
	})
}
