package registry

import (
	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/identity"
)

// LatestTag always points at the most recently pushed build of a program.
const LatestTag = "latest"

// Registry is the local history of built and deployed programs.
type Registry interface {
	Get(id identity.Identity) (*ProgramMetadata, error)
	Push(artifact *builders.BuildArtifact, project, tag string) error
	// Pull resolves reference as a digest prefix first, then as a tag. An
	// empty reference means LatestTag.
	Pull(id identity.Identity, reference string) (*builders.BuildArtifact, *VersionInfo, error)
	RecordDeployment(id identity.Identity, record DeploymentRecord) error
	DigestExists(id identity.Identity, digest string) (bool, error)
	ListAll() ([]ProgramMetadata, error)
}
