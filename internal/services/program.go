package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/deploy"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/ledger"
	"github.com/forgestack/forge/pkg/manifest"
	"github.com/forgestack/forge/pkg/registry"
	"github.com/forgestack/forge/pkg/scaffold"
	"github.com/forgestack/forge/pkg/status"
	"go.uber.org/zap"
)

// ProgramService defines the interface for program-related operations
type ProgramService interface {
	// InitProgram creates a new project named name under parent
	InitProgram(parent, name string, opts scaffold.Options) (*scaffold.Project, error)

	// BuildProgram builds the source tree at path and records the result in
	// the local history
	BuildProgram(ctx context.Context, path string, opts BuildOptions) (*BuildResult, error)

	// DeployProgram builds the source tree at path and submits it
	DeployProgram(ctx context.Context, path string, target Target, opts BuildOptions) (*DeployResult, error)

	// DeployFromHistory resubmits a stored version without rebuilding
	DeployFromHistory(ctx context.Context, id identity.Identity, reference string, target Target) (*DeployResult, error)

	// ProgramStatus queries the live deployment state of id
	ProgramStatus(ctx context.Context, id identity.Identity, endpoint string) (status.DeploymentStatus, error)

	// CheckEndpoint reports whether the ledger at endpoint answers health checks
	CheckEndpoint(ctx context.Context, endpoint string) error

	// History lists recorded programs, or only id when it is set
	History(id *identity.Identity) ([]registry.ProgramMetadata, error)
}

// BuilderFactory creates a builder for a single build
type BuilderFactory func(opts *builders.Options) builders.Builder

// BuildOptions are per-invocation build settings layered over the service
// defaults.
type BuildOptions struct {
	// ProgramID overrides the manifest and the identity mode
	ProgramID *identity.Identity

	// IdentityMode overrides the configured mode when set
	IdentityMode builders.IdentityMode

	// Output receives toolchain output
	Output io.Writer

	// Tag names the build in the history; defaults to registry.LatestTag
	Tag string
}

// Target is where a program is deployed.
type Target struct {
	Network  string
	Endpoint string
}

// BuildResult contains information about a successful program build
type BuildResult struct {
	Artifact *builders.BuildArtifact
	Project  string
	Digest   string
	Tag      string
}

// DeployResult describes a completed deployment
type DeployResult struct {
	Identity identity.Identity
	Digest   string
	Target   Target
	Record   registry.DeploymentRecord
}

// programService implements the ProgramService interface
type programService struct {
	builderFactory BuilderFactory
	buildDefaults  builders.Options
	deployer       *deploy.Deployer
	resolver       *status.Resolver
	dialer         ledger.Dialer
	registry       registry.Registry
	logger         *zap.Logger
}

// Dependencies groups what the program service needs.
type Dependencies struct {
	BuilderFactory BuilderFactory
	BuildDefaults  *builders.Options
	Deployer       *deploy.Deployer
	Resolver       *status.Resolver
	Dialer         ledger.Dialer
	Registry       registry.Registry
	Logger         *zap.Logger
}

// NewProgramService creates a new instance of the program service
func NewProgramService(deps Dependencies) ProgramService {
	s := &programService{
		builderFactory: deps.BuilderFactory,
		deployer:       deps.Deployer,
		resolver:       deps.Resolver,
		dialer:         deps.Dialer,
		registry:       deps.Registry,
		logger:         deps.Logger,
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.builderFactory == nil {
		s.builderFactory = builders.NewSBFBuilder
	}
	if deps.BuildDefaults != nil {
		s.buildDefaults = *deps.BuildDefaults
	} else {
		s.buildDefaults = *builders.DefaultOptions()
	}
	if s.dialer == nil {
		s.dialer = ledger.NewDialer(ledger.Options{Logger: s.logger})
	}
	if s.deployer == nil {
		s.deployer = deploy.NewDeployer(deploy.DefaultOptions().WithDialer(s.dialer).WithLogger(s.logger))
	}
	if s.resolver == nil {
		s.resolver = status.NewResolver(s.dialer, s.logger)
	}

	return s
}

// InitProgram creates a new project from the built-in template
func (s *programService) InitProgram(parent, name string, opts scaffold.Options) (*scaffold.Project, error) {
	project, err := scaffold.Init(parent, name, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", zap.String("name", name), zap.String("path", project.Path))
	return project, nil
}

// BuildProgram builds a program and pushes it to the local history
func (s *programService) BuildProgram(ctx context.Context, path string, opts BuildOptions) (*BuildResult, error) {
	builderOpts := s.buildDefaults
	builderOpts.Identity = opts.ProgramID
	if opts.IdentityMode != "" {
		builderOpts.IdentityMode = opts.IdentityMode
	}
	if opts.Output != nil {
		builderOpts.Output = opts.Output
	}
	if builderOpts.Logger == nil {
		builderOpts.Logger = s.logger
	}

	artifact, err := s.builderFactory(&builderOpts).Build(ctx, path)
	if err != nil {
		return nil, err
	}

	tag := opts.Tag
	if tag == "" {
		tag = registry.LatestTag
	}
	project := projectName(path)

	result := &BuildResult{
		Artifact: artifact,
		Project:  project,
		Digest:   registry.TruncateDigest(artifact.Digest(), registry.ShortDigestLength),
		Tag:      tag,
	}

	if s.registry == nil {
		return result, nil
	}
	if err := s.registry.Push(artifact, project, tag); err != nil {
		return nil, fmt.Errorf("failed to record build: %w", err)
	}

	return result, nil
}

// DeployProgram builds the source tree and deploys the result
func (s *programService) DeployProgram(ctx context.Context, path string, target Target, opts BuildOptions) (*DeployResult, error) {
	built, err := s.BuildProgram(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return s.deploy(ctx, built.Artifact, target)
}

// DeployFromHistory deploys a version stored in the local history
func (s *programService) DeployFromHistory(ctx context.Context, id identity.Identity, reference string, target Target) (*DeployResult, error) {
	if s.registry == nil {
		return nil, errors.New("no local history configured")
	}

	artifact, version, err := s.registry.Pull(id, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s from history: %w", id, err)
	}
	s.logger.Debug("loaded program from history",
		zap.Stringer("identity", id),
		zap.String("digest", version.Hash))

	return s.deploy(ctx, artifact, target)
}

func (s *programService) deploy(ctx context.Context, artifact *builders.BuildArtifact, target Target) (*DeployResult, error) {
	id, err := s.deployer.Deploy(ctx, artifact, target.Endpoint)
	if err != nil {
		return nil, err
	}

	digest := artifact.Digest()
	record := registry.NewDeploymentRecord(digest, target.Network, target.Endpoint)
	result := &DeployResult{
		Identity: id,
		Digest:   registry.TruncateDigest(digest, registry.ShortDigestLength),
		Target:   target,
		Record:   record,
	}

	if s.registry == nil {
		return result, nil
	}

	// Artifacts built outside the service have no history entry yet
	exists, err := s.registry.DigestExists(id, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to check history: %w", err)
	}
	if !exists {
		if err := s.registry.Push(artifact, "", ""); err != nil {
			return nil, fmt.Errorf("failed to record build: %w", err)
		}
	}

	// The program is on the ledger; a history failure must not hide that
	if err := s.registry.RecordDeployment(id, record); err != nil {
		s.logger.Warn("failed to record deployment", zap.Stringer("identity", id), zap.Error(err))
	}

	return result, nil
}

func (s *programService) ProgramStatus(ctx context.Context, id identity.Identity, endpoint string) (status.DeploymentStatus, error) {
	return s.resolver.Status(ctx, id, endpoint)
}

func (s *programService) CheckEndpoint(ctx context.Context, endpoint string) error {
	client, err := s.dialer.Dial(endpoint)
	if err != nil {
		return err
	}
	return client.GetHealth(ctx)
}

func (s *programService) History(id *identity.Identity) ([]registry.ProgramMetadata, error) {
	if s.registry == nil {
		return nil, errors.New("no local history configured")
	}

	if id == nil {
		return s.registry.ListAll()
	}

	metadata, err := s.registry.Get(*id)
	if err != nil {
		return nil, err
	}
	return []registry.ProgramMetadata{*metadata}, nil
}

// projectName is the program name in forge.yml, falling back to the
// directory name
func projectName(path string) string {
	if m, err := manifest.Load(path); err == nil && m.ProgramSettings.Name != "" {
		return m.ProgramSettings.Name
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.Base(abs)
}
