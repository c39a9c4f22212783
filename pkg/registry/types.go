package registry

import (
	"time"

	"github.com/forgestack/forge/pkg/identity"
)

type ProgramMetadata struct {
	Identity    identity.Identity  `json:"identity" yaml:"identity" cbor:"identity"`
	Project     string             `json:"project" yaml:"project" cbor:"project"`
	CreatedAt   time.Time          `json:"created_at" yaml:"created_at" cbor:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" yaml:"updated_at" cbor:"updated_at"`
	Versions    []VersionInfo      `json:"versions" yaml:"versions" cbor:"versions"`
	Deployments []DeploymentRecord `json:"deployments" yaml:"deployments" cbor:"deployments"`
}

type VersionInfo struct {
	Hash       string    `json:"hash" yaml:"hash" cbor:"hash"`
	FullDigest string    `json:"full_digest" yaml:"full_digest" cbor:"full_digest"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at" cbor:"created_at"`
	Size       int64     `json:"size" yaml:"size" cbor:"size"`
	SourcePath string    `json:"source_path" yaml:"source_path" cbor:"source_path"`
	Tags       []string  `json:"tags" yaml:"tags" cbor:"tags"`
}

// DeploymentRecord is one successful submission of a version to a ledger.
type DeploymentRecord struct {
	ID         string    `json:"id" yaml:"id" cbor:"id"`
	Digest     string    `json:"digest" yaml:"digest" cbor:"digest"`
	Network    string    `json:"network" yaml:"network" cbor:"network"`
	Endpoint   string    `json:"endpoint" yaml:"endpoint" cbor:"endpoint"`
	DeployedAt time.Time `json:"deployed_at" yaml:"deployed_at" cbor:"deployed_at"`
}

// LatestVersion returns the version tagged LatestTag, if any.
func (m *ProgramMetadata) LatestVersion() (VersionInfo, bool) {
	for _, v := range m.Versions {
		if HasTag(v.Tags, LatestTag) {
			return v, true
		}
	}
	return VersionInfo{}, false
}
