package localregistry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/forgestack/forge/internal/repository"
	"github.com/forgestack/forge/pkg/builders"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/registry"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("registry: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("registry: CBOR decoder initialization failed: " + err.Error())
	}
}

const programKeyPrefix = "prog:"

type localRegistry struct {
	dbRepo  repository.DBRepository
	storage registry.Storage
}

func NewLocalRegistry(rootDir string, dbRepo repository.DBRepository) registry.Registry {
	return &localRegistry{
		dbRepo:  dbRepo,
		storage: NewLocalStorage(rootDir),
	}
}

func (r *localRegistry) Get(id identity.Identity) (*registry.ProgramMetadata, error) {
	var metadata *registry.ProgramMetadata

	err := r.withReadTx(func(txn *badger.Txn) error {
		return r.getProgramMetadata(txn, id, &metadata)
	})
	if err != nil {
		return nil, err
	}

	return metadata, nil
}

func (r *localRegistry) Pull(id identity.Identity, reference string) (*builders.BuildArtifact, *registry.VersionInfo, error) {
	if reference == "" {
		reference = registry.LatestTag
	}

	var versionInfo *registry.VersionInfo
	err := r.withReadTx(func(txn *badger.Txn) error {
		var metadata *registry.ProgramMetadata
		if err := r.getProgramMetadata(txn, id, &metadata); err != nil {
			return err
		}

		// Try by digest prefix first, then by tag
		if v, ok := findByDigest(metadata, reference); ok {
			versionInfo = &v
			return nil
		}
		for _, v := range metadata.Versions {
			if registry.HasTag(v.Tags, reference) {
				versionCopy := v
				versionInfo = &versionCopy
				return nil
			}
		}

		return fmt.Errorf("%w: %s", registry.ErrInvalidReference, reference)
	})
	if err != nil {
		return nil, nil, err
	}

	bytecode, err := r.storage.ReadProgramFile(r.storage.BuildProgramPath(id, versionInfo.Hash))
	if err != nil {
		return nil, nil, err
	}

	artifact, err := builders.NewBuildArtifact(id, bytecode, versionInfo.SourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("stored program is invalid: %w", err)
	}
	if artifact.Digest() != versionInfo.FullDigest {
		return nil, nil, fmt.Errorf("stored program %s does not match its digest", versionInfo.Hash)
	}

	return artifact, versionInfo, nil
}

func (r *localRegistry) Push(artifact *builders.BuildArtifact, project, tag string) error {
	id := artifact.Identity()
	fullDigest := artifact.Digest()
	shortDigest := registry.TruncateDigest(fullDigest, registry.ShortDigestLength)
	path := r.storage.BuildProgramPath(id, shortDigest)

	return r.withWriteTx(func(txn *badger.Txn) error {
		metadata, err := r.getOrCreateMetadata(txn, id)
		if err != nil {
			return fmt.Errorf("failed to get metadata: %w", err)
		}
		if project != "" {
			metadata.Project = project
		}

		// A tag names exactly one version
		if tag != "" {
			registry.RemoveTagFromVersions(&metadata.Versions, tag)
		}

		if !r.versionExists(metadata, shortDigest) {
			if err := r.storage.WriteProgramFile(path, artifact.Bytecode()); err != nil {
				return fmt.Errorf("failed to write program file: %w", err)
			}
			newVersion := registry.CreateVersionInfo(shortDigest, fullDigest, artifact.Size(), artifact.SourcePath(), tag)
			metadata.Versions = append(metadata.Versions, newVersion)
		} else if tag != "" {
			registry.AddTagToVersion(&metadata.Versions, shortDigest, tag)
		}

		return r.updateMetadata(txn, id, metadata)
	})
}

func (r *localRegistry) RecordDeployment(id identity.Identity, record registry.DeploymentRecord) error {
	return r.withWriteTx(func(txn *badger.Txn) error {
		var metadata *registry.ProgramMetadata
		if err := r.getProgramMetadata(txn, id, &metadata); err != nil {
			return err
		}

		if record.Digest != "" {
			if _, ok := findByDigest(metadata, record.Digest); !ok {
				return registry.ErrDigestNotFound
			}
		}

		metadata.Deployments = append(metadata.Deployments, record)
		return r.updateMetadata(txn, id, metadata)
	})
}

func (r *localRegistry) DigestExists(id identity.Identity, digest string) (bool, error) {
	var exists bool

	err := r.withReadTx(func(txn *badger.Txn) error {
		var metadata *registry.ProgramMetadata
		if err := r.getProgramMetadata(txn, id, &metadata); err != nil {
			if errors.Is(err, registry.ErrProgramNotFound) {
				exists = false
				return nil
			}
			return err
		}

		shortDigest := registry.TruncateDigest(digest, registry.ShortDigestLength)
		exists = r.versionExists(metadata, shortDigest)
		return nil
	})

	return exists, err
}

func (r *localRegistry) ListAll() ([]registry.ProgramMetadata, error) {
	programs := make([]registry.ProgramMetadata, 0)

	err := r.withReadTx(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(programKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var metadata registry.ProgramMetadata
				if err := decMode.Unmarshal(val, &metadata); err != nil {
					return fmt.Errorf("failed to unmarshal metadata: %w", err)
				}
				programs = append(programs, metadata)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}

	return programs, nil
}

func (r *localRegistry) withReadTx(fn func(txn *badger.Txn) error) error {
	return r.dbRepo.View(fn)
}

func (r *localRegistry) withWriteTx(fn func(txn *badger.Txn) error) error {
	return r.dbRepo.Update(fn)
}

func (r *localRegistry) getProgramMetadata(txn *badger.Txn, id identity.Identity, metadata **registry.ProgramMetadata) error {
	item, err := txn.Get(buildProgramKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", registry.ErrProgramNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	return item.Value(func(val []byte) error {
		*metadata = &registry.ProgramMetadata{}
		if err := decMode.Unmarshal(val, *metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		return nil
	})
}

func (r *localRegistry) getOrCreateMetadata(txn *badger.Txn, id identity.Identity) (*registry.ProgramMetadata, error) {
	var metadata *registry.ProgramMetadata
	err := r.getProgramMetadata(txn, id, &metadata)
	if errors.Is(err, registry.ErrProgramNotFound) {
		return &registry.ProgramMetadata{
			Identity:    id,
			CreatedAt:   time.Now(),
			Versions:    make([]registry.VersionInfo, 0),
			Deployments: make([]registry.DeploymentRecord, 0),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return metadata, nil
}

func (r *localRegistry) updateMetadata(txn *badger.Txn, id identity.Identity, metadata *registry.ProgramMetadata) error {
	metadata.UpdatedAt = time.Now()

	val, err := encMode.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := txn.Set(buildProgramKey(id), val); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func (r *localRegistry) versionExists(metadata *registry.ProgramMetadata, shortDigest string) bool {
	for _, v := range metadata.Versions {
		if v.Hash == shortDigest {
			return true
		}
	}
	return false
}

// findByDigest matches a full digest or any prefix of at least four
// characters.
func findByDigest(metadata *registry.ProgramMetadata, digest string) (registry.VersionInfo, bool) {
	if len(digest) < 4 {
		return registry.VersionInfo{}, false
	}
	for _, v := range metadata.Versions {
		if strings.HasPrefix(v.FullDigest, digest) {
			return v, true
		}
	}
	return registry.VersionInfo{}, false
}

func buildProgramKey(id identity.Identity) []byte {
	return []byte(programKeyPrefix + id.String())
}
