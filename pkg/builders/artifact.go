package builders

import (
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/zeebo/blake3"
)

var (
	ErrEmptyBytecode = errors.New("artifact bytecode is empty")
	ErrZeroIdentity  = errors.New("artifact identity is unset")
)

// BuildArtifact is the output of a successful build. It is immutable: the
// fields are only set by NewBuildArtifact and every accessor returns a copy.
type BuildArtifact struct {
	identity   identity.Identity
	bytecode   []byte
	sourcePath string
}

// NewBuildArtifact assembles an artifact. The bytecode is copied and must not
// be empty.
func NewBuildArtifact(id identity.Identity, bytecode []byte, sourcePath string) (*BuildArtifact, error) {
	if len(bytecode) == 0 {
		return nil, ErrEmptyBytecode
	}
	if id.IsZero() {
		return nil, ErrZeroIdentity
	}

	code := make([]byte, len(bytecode))
	copy(code, bytecode)

	return &BuildArtifact{
		identity:   id,
		bytecode:   code,
		sourcePath: sourcePath,
	}, nil
}

func (a *BuildArtifact) Identity() identity.Identity {
	return a.identity
}

func (a *BuildArtifact) Bytecode() []byte {
	code := make([]byte, len(a.bytecode))
	copy(code, a.bytecode)
	return code
}

// SourcePath is where the compiled binary was read from.
func (a *BuildArtifact) SourcePath() string {
	return a.sourcePath
}

func (a *BuildArtifact) Size() int {
	return len(a.bytecode)
}

// Digest is the hex blake3 hash of the bytecode.
func (a *BuildArtifact) Digest() string {
	sum := blake3.Sum256(a.bytecode)
	return hex.EncodeToString(sum[:])
}

type artifactJSON struct {
	Identity   identity.Identity `json:"identity"`
	Bytecode   []byte            `json:"bytecode"`
	SourcePath string            `json:"source_path"`
}

func (a *BuildArtifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(artifactJSON{
		Identity:   a.identity,
		Bytecode:   a.bytecode,
		SourcePath: a.sourcePath,
	})
}

func (a *BuildArtifact) UnmarshalJSON(data []byte) error {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewBuildArtifact(raw.Identity, raw.Bytecode, raw.SourcePath)
	if err != nil {
		return err
	}
	*a = *built
	return nil
}
