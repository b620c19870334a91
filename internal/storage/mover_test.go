package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMovePathRenamesTree(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "nested", "file.txt"), []byte("content"), 0o644))

	destination := filepath.Join(base, "deep", "dst")
	require.NoError(t, MovePath(source, destination))

	require.NoDirExists(t, source)
	content, err := os.ReadFile(filepath.Join(destination, "nested", "file.txt"))
	require.NoError(t, err)
	require.Equal(t, "content", string(content))
}

func TestMovePathSingleFile(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "file.txt")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))

	destination := filepath.Join(base, "moved", "file.txt")
	require.NoError(t, MovePath(source, destination))
	require.NoFileExists(t, source)
	require.FileExists(t, destination)
}

func TestMovePathMissingSourceFails(t *testing.T) {
	base := t.TempDir()
	err := MovePath(filepath.Join(base, "absent"), filepath.Join(base, "dst"))
	require.Error(t, err)
}

func TestDirSize(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "a", "one"), []byte("12345"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "a", "b", "two"), []byte("123"), 0o644))

	size, err := DirSize(base)
	require.NoError(t, err)
	require.Equal(t, int64(8), size)

	t.Run("plain file reports its own size", func(t *testing.T) {
		size, sizeErr := DirSize(filepath.Join(base, "a", "one"))
		require.NoError(t, sizeErr)
		require.Equal(t, int64(5), size)
	})
}
