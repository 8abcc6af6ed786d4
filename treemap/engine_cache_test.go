package treemap

import (
	"fmt"
	"testing"

	"github.com/dux-project/dux/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBranchingTree creates directories with fanout subdirectories down to levels,
// and fanout files in every directory of the last level.
func newBranchingTree(path string, fanout, levels int) *tree.Node {
	node := tree.New(path, true, false, 0, nil)

	var children []*tree.Node
	for i := 0; i < fanout; i++ {
		childPath := fmt.Sprintf("%v/%v", path, i)
		if levels == 0 {
			ext := []string{"go", "mp4", "pdf", "zip"}[i%4]
			children = append(children, tree.New(childPath+"."+ext, false, false, int64(100*(i+1)), nil))
		} else {
			children = append(children, newBranchingTree(childPath, fanout, levels-1))
		}
	}

	node.AttachChildren(children)

	return node
}

func TestLayoutReusesCategoryTotals(t *testing.T) {
	root := newBranchingTree("/r", 4, 4)
	engine := NewEngine(Options{})
	bounds := Bounds{Width: 2000, Height: 2000}

	nodes := make(map[uint64]*tree.Node)
	root.Traverse(func(node *tree.Node, _ int) error {
		nodes[node.ID] = node
		return nil
	})

	rects := engine.Layout(root, bounds, 0, 0)
	require.Len(t, rects, 1364)

	// every directory and remaining depth is sampled once
	expected := make(map[totalsKey]bool)
	var visit func(node *tree.Node, depth int)
	visit = func(node *tree.Node, depth int) {
		expected[totalsKey{node.ID, depth}] = true
		for _, child := range node.Children {
			if child.IsDirectory && depth > 1 {
				visit(child, depth-1)
			}
		}
	}

	var directories int
	for _, rect := range rects {
		if rect.IsDirectory {
			directories++
			visit(nodes[rect.NodeID], defaultSampleDepth)
		}
	}

	assert.Equal(t, 340, directories)
	assert.Equal(t, len(expected), engine.misses)
	assert.Equal(t, 0, engine.hits)

	// unchanged tree is served from the cache
	engine.hits, engine.misses = 0, 0
	assert.Equal(t, rects, engine.Layout(root, bounds, 0, 0))
	assert.Equal(t, directories, engine.hits)
	assert.Equal(t, 0, engine.misses)

	// removal invalidates the totals of the ancestors, at every remaining depth
	// they are sampled with: 3 + 3 + 2 + 1 below the root
	_, err := tree.Remove(root, "/r/0/0/0/0/3.zip")
	require.NoError(t, err)

	engine.hits, engine.misses = 0, 0
	engine.Layout(root, bounds, 0, 0)
	assert.Equal(t, 9, engine.misses)
}
