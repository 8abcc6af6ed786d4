package treemap_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/dux-project/dux/tree"
	"github.com/dux-project/dux/treemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-6

func newFile(path string, size int64) *tree.Node {
	return tree.New(path, false, false, size, nil)
}

func newDir(path string, children ...*tree.Node) *tree.Node {
	node := tree.New(path, true, false, 0, nil)
	node.AttachChildren(children)
	return node
}

func randomTree(rnd *rand.Rand, path string, depth int) *tree.Node {
	var children []*tree.Node

	for i, n := 0, rnd.Intn(8); i < n; i++ {
		childPath := fmt.Sprintf("%v/n%d", path, i)
		if depth > 0 && rnd.Intn(3) == 0 {
			children = append(children, randomTree(rnd, childPath, depth-1))
		} else {
			children = append(children, newFile(childPath+".dat", rnd.Int63n(1000)))
		}
	}

	return newDir(path, children...)
}

func overlap(a, b treemap.Bounds) float64 {
	w := math.Min(a.X+a.Width, b.X+b.Width) - math.Max(a.X, b.X)
	h := math.Min(a.Y+a.Height, b.Y+b.Height) - math.Max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func topLevel(rects []treemap.Rect) []treemap.Rect {
	var result []treemap.Rect
	for _, rect := range rects {
		if rect.Depth == 0 {
			result = append(result, rect)
		}
	}
	return result
}

func TestLayoutProportionalAreas(t *testing.T) {
	root := newDir("/r", newFile("/r/a", 600), newFile("/r/b", 300), newFile("/r/c", 100))
	bounds := treemap.Bounds{Width: 100, Height: 100}

	rects := treemap.NewEngine(treemap.Options{}).Layout(root, bounds, 0, 0)
	require.Len(t, rects, 3)

	assert.Equal(t, "a", rects[0].Name)
	assert.InDelta(t, 6000, rects[0].Area(), epsilon)
	assert.InDelta(t, 3000, rects[1].Area(), epsilon)
	assert.InDelta(t, 1000, rects[2].Area(), epsilon)

	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			assert.InDelta(t, 0, overlap(rects[i].Bounds, rects[j].Bounds), epsilon)
		}
	}
}

func TestLayoutTiling(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	engine := treemap.NewEngine(treemap.Options{})

	for i := 0; i < 100; i++ {
		root := randomTree(rnd, "/root", 3)
		bounds := treemap.Bounds{X: 10, Y: 20, Width: float64(50 + rnd.Intn(500)), Height: float64(50 + rnd.Intn(500))}

		rects := topLevel(engine.Layout(root, bounds, 0, 0))
		if root.Size == 0 {
			assert.Empty(t, rects)
			continue
		}

		var area float64
		for j, rect := range rects {
			area += rect.Area()

			assert.GreaterOrEqual(t, rect.X, bounds.X-epsilon)
			assert.GreaterOrEqual(t, rect.Y, bounds.Y-epsilon)
			assert.LessOrEqual(t, rect.X+rect.Width, bounds.X+bounds.Width+epsilon)
			assert.LessOrEqual(t, rect.Y+rect.Height, bounds.Y+bounds.Height+epsilon)

			for k := j + 1; k < len(rects); k++ {
				assert.InDelta(t, 0, overlap(rect.Bounds, rects[k].Bounds), 1e-3)
			}
		}

		assert.InDelta(t, bounds.Area(), area, 1e-3)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	root := randomTree(rand.New(rand.NewSource(3)), "/root", 4)
	bounds := treemap.Bounds{Width: 800, Height: 600}

	first := treemap.NewEngine(treemap.Options{}).Layout(root, bounds, 0, 0)
	second := treemap.NewEngine(treemap.Options{}).Layout(root, bounds, 0, 0)
	third := treemap.NewEngine(treemap.Options{}).Layout(root, bounds, 0, 0)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestLayoutMaxRects(t *testing.T) {
	var children []*tree.Node
	for i := 0; i < 1000; i++ {
		children = append(children, newFile(fmt.Sprintf("/wide/f%d", i), int64(i+1)))
	}
	root := newDir("/wide", newDir("/wide/sub", children...), newFile("/wide/big", 1000000))

	engine := treemap.NewEngine(treemap.Options{MinRectSize: 0.001})
	bounds := treemap.Bounds{Width: 1000, Height: 1000}

	for _, maxRects := range []int{1, 10, 100} {
		rects := engine.Layout(root, bounds, 0, maxRects)
		assert.Len(t, rects, maxRects)
	}

	assert.LessOrEqual(t, len(engine.Layout(root, bounds, 0, 0)), engine.Options().MaxRects)
}

func TestLayoutMaxDepth(t *testing.T) {
	root := newDir("/r",
		newDir("/r/a", newFile("/r/a/x.txt", 50), newDir("/r/a/b", newFile("/r/a/b/y.txt", 50))),
		newFile("/r/z.mp3", 100),
	)
	bounds := treemap.Bounds{Width: 400, Height: 400}
	engine := treemap.NewEngine(treemap.Options{})

	rects := engine.Layout(root, bounds, 1, 0)
	assert.Len(t, rects, 2)

	rects = engine.Layout(root, bounds, 0, 0)
	assert.Len(t, rects, 5)

	// pre-order: directories precede their descendants
	seen := map[string]int{}
	for i, rect := range rects {
		seen[rect.Path] = i
	}
	assert.Less(t, seen["/r/a"], seen["/r/a/x.txt"])
	assert.Less(t, seen["/r/a/b"], seen["/r/a/b/y.txt"])
}

func TestLayoutDegenerate(t *testing.T) {
	engine := treemap.NewEngine(treemap.Options{})

	empty := newDir("/r", newFile("/r/a", 0), newDir("/r/b"))
	assert.Empty(t, engine.Layout(empty, treemap.Bounds{Width: 100, Height: 100}, 0, 0))

	root := newDir("/r", newFile("/r/a", 10))
	assert.Empty(t, engine.Layout(root, treemap.Bounds{Width: 3, Height: 100}, 0, 0))
	assert.Empty(t, engine.Layout(root, treemap.Bounds{Width: 100, Height: 0}, 0, 0))

	// zero-size siblings take no area
	mixed := newDir("/r", newFile("/r/a", 10), newFile("/r/b", 0))
	rects := engine.Layout(mixed, treemap.Bounds{Width: 100, Height: 100}, 0, 0)
	require.Len(t, rects, 1)
	assert.InDelta(t, 10000, rects[0].Area(), epsilon)
}

func TestLayoutFileRoot(t *testing.T) {
	engine := treemap.NewEngine(treemap.Options{})
	bounds := treemap.Bounds{Width: 50, Height: 50}

	rects := engine.Layout(newFile("/r/movie.mkv", 10), bounds, 0, 0)
	require.Len(t, rects, 1)
	assert.Equal(t, bounds, rects[0].Bounds)
	assert.Equal(t, tree.CategoryVideo, rects[0].Category)
}

func TestLayoutColors(t *testing.T) {
	root := newDir("/r",
		newDir("/r/media", newFile("/r/media/a.mp4", 1000), newFile("/r/media/b.pdf", 10)),
		newFile("/r/notes.md", 500),
	)

	engine := treemap.NewEngine(treemap.Options{})
	rects := engine.Layout(root, treemap.Bounds{Width: 300, Height: 300}, 0, 0)

	byPath := map[string]treemap.Rect{}
	for _, rect := range rects {
		byPath[rect.Path] = rect
	}

	media := byPath["/r/media"]
	assert.Equal(t, tree.CategoryVideo, media.Category)
	assert.Equal(t, treemap.CategoryColor(tree.CategoryVideo), media.Color)

	video := byPath["/r/media/a.mp4"]
	assert.Equal(t, 1, video.Depth)
	assert.Equal(t, treemap.Darken(treemap.CategoryColor(tree.CategoryVideo), 0.08), video.Color)

	assert.Equal(t, tree.CategoryDocuments, byPath["/r/notes.md"].Category)

	// dominant categories are recomputed once the tree changes
	_, err := tree.Remove(root, "/r/media/a.mp4")
	require.NoError(t, err)

	rects = engine.Layout(root, treemap.Bounds{Width: 300, Height: 300}, 0, 0)
	for _, rect := range rects {
		if rect.Path == "/r/media" {
			assert.Equal(t, tree.CategoryDocuments, rect.Category)
		}
	}
}

func TestDominantCategorySampling(t *testing.T) {
	deep := newDir("/r/d", newDir("/r/d/1", newDir("/r/d/1/2", newDir("/r/d/1/2/3", newFile("/r/d/1/2/3/huge.iso", 1000000)))),
		newFile("/r/d/small.go", 1))

	root := newDir("/r", deep)
	rects := treemap.NewEngine(treemap.Options{}).Layout(root, treemap.Bounds{Width: 100, Height: 100}, 1, 0)
	require.Len(t, rects, 1)

	// files below the sampled levels are ignored
	assert.Equal(t, tree.CategoryCode, rects[0].Category)
}

func TestHitTest(t *testing.T) {
	root := newDir("/r",
		newDir("/r/a", newFile("/r/a/x.txt", 500)),
		newFile("/r/b.txt", 500),
	)

	rects := treemap.NewEngine(treemap.Options{}).Layout(root, treemap.Bounds{Width: 200, Height: 100}, 0, 0)

	hit := treemap.HitTest(rects, 50, 50)
	require.NotNil(t, hit)
	assert.Equal(t, "/r/a/x.txt", hit.Path)

	// padding of the directory
	hit = treemap.HitTest(rects, 0.5, 0.5)
	require.NotNil(t, hit)
	assert.Equal(t, "/r/a", hit.Path)

	hit = treemap.HitTest(rects, 150, 50)
	require.NotNil(t, hit)
	assert.Equal(t, "/r/b.txt", hit.Path)

	assert.Nil(t, treemap.HitTest(rects, 250, 50))
	assert.Nil(t, treemap.HitTest(rects, 200, 50))
}

func TestColorString(t *testing.T) {
	assert.Equal(t, "#ff8000", treemap.Color{R: 255, G: 128}.String())
	assert.Equal(t, treemap.Color{R: 127, G: 64}, treemap.Darken(treemap.Color{R: 255, G: 128}, 0.5))
	assert.Equal(t, treemap.Color{}, treemap.Darken(treemap.Color{R: 255}, 2))
}
