package registry

import "github.com/forgestack/forge/pkg/identity"

type Storage interface {
	ReadProgramFile(path string) ([]byte, error)
	WriteProgramFile(path string, data []byte) error
	BuildProgramPath(id identity.Identity, shortDigest string) string
}
