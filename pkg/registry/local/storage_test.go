package localregistry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalStorage(t *testing.T) (*localStorage, string, func()) {
	tmpDir, err := os.MkdirTemp("", "local-storage-test-*")
	require.NoError(t, err, "failed to create temp directory")

	storage := NewLocalStorage(tmpDir).(*localStorage)

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return storage, tmpDir, cleanup
}

func TestReadProgramFile(t *testing.T) {
	storage, tmpDir, cleanup := setupLocalStorage(t)
	defer cleanup()

	programPath := filepath.Join(tmpDir, "test.so.zst")
	programContent := []byte("test program content")
	require.NoError(t, storage.WriteProgramFile(programPath, programContent))

	t.Run("read existing program file", func(t *testing.T) {
		data, err := storage.ReadProgramFile(programPath)
		require.NoError(t, err, "failed to read program file")
		assert.Equal(t, programContent, data, "program file content mismatch")
	})

	t.Run("read nonexistent program file", func(t *testing.T) {
		_, err := storage.ReadProgramFile(filepath.Join(tmpDir, "nonexistent.so.zst"))
		require.Error(t, err, "expected error for nonexistent file")
		assert.ErrorIs(t, err, registry.ErrBytecodeNotFound)
	})

	t.Run("read uncompressed file", func(t *testing.T) {
		rawPath := filepath.Join(tmpDir, "raw.so.zst")
		require.NoError(t, os.WriteFile(rawPath, []byte("not a zstd frame"), 0644))

		_, err := storage.ReadProgramFile(rawPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read program file")
	})
}

func TestWriteProgramFile(t *testing.T) {
	storage, tmpDir, cleanup := setupLocalStorage(t)
	defer cleanup()

	programContent := make([]byte, 64*1024)

	t.Run("write compresses", func(t *testing.T) {
		programPath := filepath.Join(tmpDir, "zeros.so.zst")
		require.NoError(t, storage.WriteProgramFile(programPath, programContent))

		info, err := os.Stat(programPath)
		require.NoError(t, err)
		assert.Less(t, info.Size(), int64(len(programContent)))
	})

	t.Run("write with directory creation", func(t *testing.T) {
		nestedPath := filepath.Join(tmpDir, "nested", "dir", "test.so.zst")
		require.NoError(t, storage.WriteProgramFile(nestedPath, programContent))

		data, err := storage.ReadProgramFile(nestedPath)
		require.NoError(t, err)
		assert.Equal(t, programContent, data)
	})
}

func TestBuildProgramPath(t *testing.T) {
	storage, tmpDir, cleanup := setupLocalStorage(t)
	defer cleanup()

	id := identity.Derive([]byte("program"))
	expected := filepath.Join(tmpDir, "storage", id.String(), "versions", "abc123.so.zst")
	assert.Equal(t, expected, storage.BuildProgramPath(id, "abc123"))
}
