package remote_test

import (
	"math/rand"
	"testing"

	"github.com/dux-project/dux/remote"
	"github.com/dux-project/dux/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func childNames(node *tree.Node) []string {
	var names []string
	for _, child := range node.Children {
		names = append(names, child.Name)
	}
	return names
}

func TestParseListing(t *testing.T) {
	data := []byte("/a|d|4096\n" +
		"/a/b.txt|f|100\r\n" +
		"/a/x|y.log|f|7\n" +
		"garbage\n" +
		"|f|1\n" +
		"/a/bad|f|NaN\n" +
		"\n")

	entries := remote.ParseListing(data)

	assert.Equal(t, []remote.Entry{
		{Path: "/a", IsDir: true, Size: 4096},
		{Path: "/a/b.txt", Size: 100},
		{Path: "/a/x|y.log", Size: 7},
		{Path: "/a/bad", Size: 0},
	}, entries)
}

var scenarioEntries = []remote.Entry{
	{Path: "/a", IsDir: true, Size: 0},
	{Path: "/a/b.txt", Size: 100},
	{Path: "/a/c", IsDir: true, Size: 0},
	{Path: "/a/c/d.txt", Size: 50},
}

func TestReconstruct(t *testing.T) {
	root := remote.Reconstruct("/a", scenarioEntries)

	assert.Equal(t, "/a", root.Path)
	assert.Equal(t, int64(150), root.Size)
	assert.Equal(t, int64(2), root.FileCount)
	assert.Equal(t, []string{"b.txt", "c"}, childNames(root))
	assert.Equal(t, int64(100), root.Children[0].Size)
	assert.Equal(t, int64(50), root.Children[1].Size)
	assert.Equal(t, "txt", root.Children[0].Extension)
}

func TestReconstructOrderIndependent(t *testing.T) {
	entries := append([]remote.Entry{}, scenarioEntries...)
	entries = append(entries,
		remote.Entry{Path: "/a/c/e", IsDir: true, Size: 0},
		remote.Entry{Path: "/a/c/e/f.bin", Size: 50},
		remote.Entry{Path: "/a/c/e/g.bin", Size: 50},
		remote.Entry{Path: "/a/.hidden", Size: 100},
		remote.Entry{Path: "/a/empty", IsDir: true, Size: 4096},
	)

	expected := tree.NewDocument(remote.Reconstruct("/a", entries))
	assert.Equal(t, int64(350), expected.Size)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]remote.Entry{}, entries...)
		rnd.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		assert.Equal(t, expected, tree.NewDocument(remote.Reconstruct("/a", shuffled)))
	}
}

func TestReconstructDropsOrphans(t *testing.T) {
	root := remote.Reconstruct("/a", []remote.Entry{
		{Path: "/a/b.txt", Size: 10},
		{Path: "/a/missing/deep.txt", Size: 1000},
		{Path: "/elsewhere/x", Size: 1000},
	})

	// root is synthesized
	assert.Equal(t, "/a", root.Path)
	assert.True(t, root.IsDirectory)
	assert.Equal(t, int64(10), root.Size)
	assert.Equal(t, []string{"b.txt"}, childNames(root))
}

func TestReconstructTrailingSlash(t *testing.T) {
	root := remote.Reconstruct("/a/", []remote.Entry{
		{Path: "/a/", IsDir: true, Size: 0},
		{Path: "/a//b", Size: 3},
	})

	assert.Equal(t, "/a", root.Path)
	assert.Equal(t, int64(3), root.Size)
}

func TestReconstructExpandedRoot(t *testing.T) {
	root := remote.Reconstruct("~/data", []remote.Entry{
		{Path: "/home/alice/data", IsDir: true, Size: 0},
		{Path: "/home/alice/data/x.csv", Size: 42},
	})

	assert.Equal(t, "/home/alice/data", root.Path)
	assert.Equal(t, int64(42), root.Size)
}

func TestReconstructSingleFile(t *testing.T) {
	root := remote.Reconstruct("/var/log/syslog", []remote.Entry{
		{Path: "/var/log/syslog", Size: 1234},
	})

	require.False(t, root.IsDirectory)
	assert.Equal(t, int64(1234), root.Size)
	assert.Equal(t, int64(1), root.FileCount)
}
