package builders

import (
	"context"
	"io"
	"path/filepath"

	"github.com/forgestack/forge/pkg/identity"
	"go.uber.org/zap"
)

// OutputDir is where the toolchain leaves compiled programs, relative to the
// source tree.
var OutputDir = filepath.Join("target", "deploy")

// ProgramExtension marks compiled program binaries in OutputDir.
const ProgramExtension = ".so"

type Builder interface {
	Build(ctx context.Context, path string) (*BuildArtifact, error)
	VerifyDependencies() error
}

// Toolchain is the external compiler invocation. The builder appends
// "--manifest-path <tree>/Cargo.toml" to Args.
type Toolchain struct {
	Command string   `json:"command" koanf:"command"`
	Args    []string `json:"args" koanf:"args"`
}

func DefaultToolchain() Toolchain {
	return Toolchain{
		Command: "cargo",
		Args:    []string{"build-sbf"},
	}
}

// IdentityMode decides how an identity is assigned when none is injected.
type IdentityMode string

const (
	// IdentityRandom generates a fresh identity on every build.
	IdentityRandom IdentityMode = "random"
	// IdentityContent derives the identity from the bytecode.
	IdentityContent IdentityMode = "content"
)

// Options configures a builder.
type Options struct {
	Toolchain Toolchain

	// Identity, when set, is used as-is and overrides the manifest and
	// IdentityMode.
	Identity *identity.Identity

	IdentityMode IdentityMode

	// Output receives the toolchain's stdout and stderr as they are produced.
	Output io.Writer

	Logger *zap.Logger
}

// DefaultOptions returns a new Options with default values.
func DefaultOptions() *Options {
	return &Options{
		Toolchain:    DefaultToolchain(),
		IdentityMode: IdentityRandom,
		Output:       io.Discard,
		Logger:       zap.NewNop(),
	}
}

// WithToolchain sets the compiler invocation.
func (o *Options) WithToolchain(toolchain Toolchain) *Options {
	o.Toolchain = toolchain
	return o
}

// WithIdentity injects the program identity.
func (o *Options) WithIdentity(id identity.Identity) *Options {
	o.Identity = &id
	return o
}

// WithIdentityMode sets how identities are assigned when none is injected.
func (o *Options) WithIdentityMode(mode IdentityMode) *Options {
	o.IdentityMode = mode
	return o
}

// WithOutput tees toolchain output to w.
func (o *Options) WithOutput(w io.Writer) *Options {
	o.Output = w
	return o
}

// WithLogger sets the logger.
func (o *Options) WithLogger(logger *zap.Logger) *Options {
	o.Logger = logger
	return o
}

type BuildError struct {
	Err    error
	Stderr string
	Step   string
}

func (e *BuildError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
