package localregistry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/registry"
	"github.com/klauspost/compress/zstd"
)

// Stored programs are zstd frames. The encoder and decoder are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("registry: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("registry: zstd decoder initialization failed: " + err.Error())
	}
}

type localStorage struct {
	rootDir string
}

func NewLocalStorage(rootDir string) registry.Storage {
	return &localStorage{rootDir: rootDir}
}

func (s *localStorage) ReadProgramFile(path string) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("program file not found: %w", registry.ErrBytecodeNotFound)
		}
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: corrupt frame: %w", err)
	}
	return data, nil
}

func (s *localStorage) WriteProgramFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(path, zstdEncoder.EncodeAll(data, nil), 0644); err != nil {
		return fmt.Errorf("failed to write program file: %w", err)
	}
	return nil
}

func (s *localStorage) BuildProgramPath(id identity.Identity, shortDigest string) string {
	return filepath.Join(s.rootDir, "storage", id.String(), "versions", shortDigest+".so.zst")
}
