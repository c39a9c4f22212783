package builders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	forgeerrors "github.com/forgestack/forge/pkg/errors"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/manifest"
	"go.uber.org/zap"
)

type sbfBuilder struct {
	opts *Options
}

// NewSBFBuilder returns a builder that compiles a Cargo source tree into an
// on-chain program with the configured toolchain.
func NewSBFBuilder(opts *Options) Builder {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Toolchain.Command == "" {
		opts.Toolchain = DefaultToolchain()
	}
	return &sbfBuilder{opts: opts}
}

func (b *sbfBuilder) VerifyDependencies() error {
	if _, err := exec.LookPath(b.opts.Toolchain.Command); err != nil {
		return forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeToolchainFailure,
			fmt.Sprintf("toolchain %q not found in PATH", b.opts.Toolchain.Command), err)
	}
	return nil
}

func (b *sbfBuilder) Build(ctx context.Context, path string) (*BuildArtifact, error) {
	logger := b.opts.Logger.With(zap.String("path", path))
	start := time.Now()

	manifestPath := filepath.Join(path, manifest.CargoFileName)
	logger.Debug("running toolchain",
		zap.String("command", b.opts.Toolchain.Command),
		zap.Strings("args", b.opts.Toolchain.Args))

	if err := b.compile(ctx, path, manifestPath); err != nil {
		logger.Warn("toolchain failed", zap.Error(err))
		return nil, err
	}

	programPath, err := SelectProgram(path)
	if err != nil {
		return nil, err
	}

	bytecode, err := os.ReadFile(programPath)
	if err != nil {
		return nil, forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
			"failed to read compiled program", err).WithPath(programPath)
	}
	if len(bytecode) == 0 {
		return nil, forgeerrors.New(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
			"compiled program is empty").WithPath(programPath)
	}

	id, err := b.assignIdentity(path, bytecode)
	if err != nil {
		return nil, err
	}

	artifact, err := NewBuildArtifact(id, bytecode, programPath)
	if err != nil {
		return nil, forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
			"failed to assemble artifact", err).WithPath(programPath)
	}

	logger.Info("program built",
		zap.Stringer("identity", id),
		zap.String("program", programPath),
		zap.Int("size", artifact.Size()),
		zap.Duration("elapsed", time.Since(start)))

	return artifact, nil
}

// compile runs the toolchain and turns a failed run into a ToolchainFailure
// that carries stderr verbatim.
func (b *sbfBuilder) compile(ctx context.Context, dir, manifestPath string) error {
	args := append(append([]string{}, b.opts.Toolchain.Args...), "--manifest-path", manifestPath)
	cmd := exec.CommandContext(ctx, b.opts.Toolchain.Command, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	output := &lockedWriter{w: b.opts.Output}
	cmd.Stdout = output
	cmd.Stderr = io.MultiWriter(&stderr, output)

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("%s exited with an error", b.opts.Toolchain.Command)
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			message = fmt.Sprintf("failed to start %s", b.opts.Toolchain.Command)
		}
		return forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeToolchainFailure, message, &BuildError{
			Err:    err,
			Stderr: strings.TrimRight(stderr.String(), "\n"),
			Step:   "compile",
		}).WithPath(dir)
	}

	return nil
}

// assignIdentity picks, in order: the injected identity, the identity pinned
// in forge.yml, then one produced by the identity mode.
func (b *sbfBuilder) assignIdentity(path string, bytecode []byte) (identity.Identity, error) {
	if b.opts.Identity != nil {
		return *b.opts.Identity, nil
	}

	m, err := manifest.Load(path)
	switch {
	case errors.Is(err, manifest.ErrNotAProject):
	case err != nil:
		return identity.Zero, forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
			"failed to read project manifest", err).WithPath(path)
	default:
		id, ok, err := m.Identity()
		if err != nil {
			return identity.Zero, forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
				"failed to read project manifest", err).WithPath(path)
		}
		if ok {
			return id, nil
		}
	}

	switch b.opts.IdentityMode {
	case IdentityContent:
		return identity.Derive(bytecode), nil
	case IdentityRandom, "":
		id, err := identity.New()
		if err != nil {
			return identity.Zero, forgeerrors.Wrap(forgeerrors.DomainBuild, forgeerrors.CodeIOFailure,
				"failed to generate program identity", err)
		}
		return id, nil
	default:
		return identity.Zero, forgeerrors.New(forgeerrors.DomainBuild, forgeerrors.CodeInvalidOptions,
			fmt.Sprintf("unknown identity mode %q", b.opts.IdentityMode))
	}
}

// lockedWriter serializes the stdout and stderr copy goroutines started by
// exec.Cmd when both end up in the same writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
