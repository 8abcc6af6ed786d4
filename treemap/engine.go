package treemap

import (
	"sync"

	"github.com/dux-project/dux/tree"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMaxRects       = 10000
	defaultMinRectSize    = 4
	defaultPadding        = 3
	defaultSampleChildren = 100
	defaultSampleDepth    = 3
	defaultDarkenPerDepth = 0.08
	maxDarken             = 0.5
	minTotalsCacheSize    = 128
)

// Options configures the layout engine.
type Options struct {
	MaxDepth       int     // Max nesting level to emit, 0 for unlimited
	MaxRects       int     // Max rectangles emitted by one layout, defaults to 10000
	MinRectSize    float64 // Bounds smaller than this in either dimension are not subdivided, defaults to 4
	Padding        float64 // Inset of the children of a top level directory, shrinks with depth, defaults to 3
	SampleChildren int     // Children sampled per level for dominant categories, defaults to 100
	SampleDepth    int     // Levels sampled for dominant categories, defaults to 3
}

// Normalize fills defaults for unset fields.
func (opt *Options) Normalize() {
	if opt.MaxRects <= 0 {
		opt.MaxRects = defaultMaxRects
	}

	if opt.MinRectSize <= 0 {
		opt.MinRectSize = defaultMinRectSize
	}

	if opt.Padding <= 0 {
		opt.Padding = defaultPadding
	}

	if opt.SampleChildren <= 0 {
		opt.SampleChildren = defaultSampleChildren
	}

	if opt.SampleDepth <= 0 {
		opt.SampleDepth = defaultSampleDepth
	}
}

// Engine computes squarified treemap layouts.
//
// Per-category byte totals of sampled directories are memoized across Layout
// calls, keyed by directory and remaining sample depth. An entry is only reused
// while the directory keeps the size it had when the entry was computed, which
// holds until a descendant is removed. Layout calls on the same Engine are
// serialized.
type Engine struct {
	opt Options

	mu     sync.Mutex
	totals *lru.Cache[totalsKey, *categoryTotals]
	hits   int
	misses int
}

type totalsKey struct {
	id    uint64
	depth int // Remaining levels to sample
}

// categoryTotals are read-only once cached.
type categoryTotals struct {
	size  int64 // Directory size when computed
	bytes map[tree.Category]int64
}

// NewEngine creates an Engine.
func NewEngine(opt Options) *Engine {
	opt.Normalize()

	// emitted directories never exceed the rectangle budget
	totals, err := lru.New[totalsKey, *categoryTotals](max(opt.MaxRects*opt.SampleDepth, minTotalsCacheSize))
	if err != nil {
		panic(err)
	}

	return &Engine{
		opt:    opt,
		totals: totals,
	}
}

// Options returns the normalized options of the engine.
func (e *Engine) Options() Options {
	return e.opt
}

// Layout tiles bounds with the children of root, recursively, and returns the
// rectangles in pre-order: every directory comes before its descendants. A file
// root with a positive size covers the bounds on its own.
//
// Non-positive maxDepth and maxRects fall back to the engine options. The result is
// identical for identical inputs.
func (e *Engine) Layout(root *tree.Node, bounds Bounds, maxDepth, maxRects int) []Rect {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := layout{
		engine:   e,
		maxDepth: maxDepth,
		maxRects: maxRects,
	}

	if l.maxDepth <= 0 {
		l.maxDepth = e.opt.MaxDepth
	}

	if l.maxRects <= 0 {
		l.maxRects = e.opt.MaxRects
	}

	if root.IsLeaf() {
		if root.Size > 0 && l.visible(bounds) {
			l.emit(root, bounds, 0)
		}
		return l.rects
	}

	l.layoutChildren(root, bounds, 0)

	return l.rects
}

type layout struct {
	engine   *Engine
	maxDepth int
	maxRects int
	rects    []Rect
}

func (l *layout) visible(bounds Bounds) bool {
	return bounds.Width >= l.engine.opt.MinRectSize && bounds.Height >= l.engine.opt.MinRectSize
}

func (l *layout) full() bool {
	return len(l.rects) >= l.maxRects
}

func (l *layout) layoutChildren(node *tree.Node, bounds Bounds, depth int) {
	if l.maxDepth > 0 && depth >= l.maxDepth {
		return
	}

	if !l.visible(bounds) {
		return
	}

	for _, p := range squarify(node.Children, bounds) {
		if l.full() {
			return
		}

		l.emit(p.node, p.bounds, depth)

		if !p.node.IsDirectory || len(p.node.Children) == 0 {
			continue
		}

		inner := p.bounds.Inset(l.padding(depth))
		if l.visible(inner) {
			l.layoutChildren(p.node, inner, depth+1)
		}
	}
}

// padding shrinks by half a unit per level, down to one.
func (l *layout) padding(depth int) float64 {
	return max(1, l.engine.opt.Padding-0.5*float64(depth))
}

func (l *layout) emit(node *tree.Node, bounds Bounds, depth int) {
	category := node.Category()
	if node.IsDirectory {
		category = l.dominant(node)
	}

	darken := min(maxDarken, defaultDarkenPerDepth*float64(depth))

	l.rects = append(l.rects, Rect{
		Bounds:      bounds,
		NodeID:      node.ID,
		Name:        node.Name,
		Path:        node.Path,
		Size:        node.Size,
		IsDirectory: node.IsDirectory,
		Depth:       depth,
		Category:    category,
		Color:       Darken(CategoryColor(category), darken),
	})
}

// dominant returns the category holding most bytes among a bounded sample of the
// descendant files of node. Ties are broken by the order of tree.Categories.
func (l *layout) dominant(node *tree.Node) tree.Category {
	bytes := l.sample(node, l.engine.opt.SampleDepth)

	dominant := tree.CategoryOther
	var most int64
	for _, category := range tree.Categories {
		if bytes[category] > most {
			dominant, most = category, bytes[category]
		}
	}

	return dominant
}

// sample sums the bytes per category of the first children of node, descending
// into subdirectories while more than one level remains. Totals of subdirectories
// come from the cache when still valid.
func (l *layout) sample(node *tree.Node, depth int) map[tree.Category]int64 {
	e := l.engine

	key := totalsKey{node.ID, depth}
	if cached, ok := e.totals.Get(key); ok && cached.size == node.Size {
		e.hits++
		return cached.bytes
	}

	e.misses++

	bytes := make(map[tree.Category]int64)
	for i, child := range node.Children {
		if i >= e.opt.SampleChildren {
			break
		}

		if !child.IsDirectory {
			bytes[child.Category()] += child.Size
			continue
		}

		if depth > 1 {
			for category, size := range l.sample(child, depth-1) {
				bytes[category] += size
			}
		}
	}

	e.totals.Add(key, &categoryTotals{node.Size, bytes})

	return bytes
}
