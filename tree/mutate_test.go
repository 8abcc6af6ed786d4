package tree_test

import (
	"testing"

	"github.com/dux-project/dux/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemove(t *testing.T) {
	big := newFile("/r/x/big", 100)
	small := newFile("/r/x/small", 10)
	root := newDir("/r", newDir("/r/x", big, small), newFile("/r/a", 60))
	require.Equal(t, "x", root.Children[0].Name)

	removed, err := tree.Remove(root, "/r/x/big")
	require.NoError(t, err)
	assert.Equal(t, big, removed)

	assert.Equal(t, int64(70), root.Size)
	assert.Equal(t, int64(2), root.FileCount)
	// ancestors are re-sorted after the size change
	assert.Equal(t, "a", root.Children[0].Name)
	assertAggregated(t, root)
}

func TestRemoveDirectory(t *testing.T) {
	root := newDir("/r", newDir("/r/x", newFile("/r/x/1", 1), newFile("/r/x/2", 2)), newFile("/r/a", 1))

	_, err := tree.Remove(root, "/r/x")
	require.NoError(t, err)

	assert.Equal(t, int64(1), root.Size)
	assert.Equal(t, int64(1), root.FileCount)
	assert.Len(t, root.Children, 1)
}

func TestRemoveErrors(t *testing.T) {
	root := newDir("/r", newFile("/r/a", 1))

	_, err := tree.Remove(root, "/r")
	assert.ErrorIs(t, err, tree.ErrRootRemoval)

	_, err = tree.Remove(root, "/r/missing")
	assert.Error(t, err)
	assert.Equal(t, int64(1), root.Size)
}
