package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAllowed(t *testing.T) {
	root := t.TempDir()

	t.Run("root itself is allowed", func(t *testing.T) {
		require.True(t, IsAllowed(root, root))
	})

	t.Run("nested path is allowed", func(t *testing.T) {
		require.True(t, IsAllowed(root, filepath.Join(root, "a", "b", "c")))
	})

	t.Run("sibling is rejected", func(t *testing.T) {
		require.False(t, IsAllowed(root, filepath.Join(root, "..", "sibling")))
	})

	t.Run("prefix collision is rejected", func(t *testing.T) {
		require.False(t, IsAllowed(root, root+"-suffix"))
	})

	t.Run("traversal inside the path is normalized", func(t *testing.T) {
		require.True(t, IsAllowed(root, filepath.Join(root, "a", "..", "b")))
		require.False(t, IsAllowed(root, filepath.Join(root, "a", "..", "..", "escape")))
	})
}

func TestRootSet(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	set, err := NewRootSet(rootA, "", rootB, "  ")
	require.NoError(t, err)
	require.Len(t, set.Roots(), 2)
	require.False(t, set.Empty())

	require.True(t, set.Contains(filepath.Join(rootA, "x")))
	require.True(t, set.Contains(filepath.Join(rootB, "y")))
	require.False(t, set.Contains(filepath.Join(rootA, "..", "outside")))

	t.Run("nil and empty sets contain nothing", func(t *testing.T) {
		var nilSet *RootSet
		require.True(t, nilSet.Empty())
		require.False(t, nilSet.Contains(rootA))

		empty, emptyErr := NewRootSet()
		require.NoError(t, emptyErr)
		require.True(t, empty.Empty())
	})
}
