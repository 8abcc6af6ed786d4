package tree

import (
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

var lastID atomic.Uint64

// Node represents a file system entry in a size-aggregated hierarchy.
//
// Each child is exclusively owned by its parent. Nodes keep no reference to
// their parents, so ancestor re-aggregation after a structural change is done
// by walking down from the root (see Remove).
type Node struct {
	ID          uint64     // Opaque unique id
	Name        string     // Base name
	Path        string     // Absolute path
	IsDirectory bool       // Traversable directory (never a symlink)
	IsSymlink   bool       // Entry is a symbolic link, never followed
	IsHidden    bool       // Name starts with a dot
	Extension   string     // Lowercased extension without dot (files only)
	ModTime     *time.Time // Modification time, nil if unknown
	Size        int64      // Size in bytes, aggregated for directories
	FileCount   int64      // Number of files in the subtree
	Children    []*Node    // Directory entries (only for directories)
}

// New creates a node for the entry at the specified path. Directories start
// with no children and zero size until AttachChildren is called.
func New(path string, isDirectory, isSymlink bool, size int64, modTime *time.Time) *Node {
	name := baseName(path)

	node := &Node{
		ID:          lastID.Add(1),
		Name:        name,
		Path:        path,
		IsDirectory: isDirectory,
		IsSymlink:   isSymlink,
		IsHidden:    strings.HasPrefix(name, "."),
		ModTime:     modTime,
	}

	if isDirectory {
		node.Children = []*Node{}
		return node
	}

	node.Extension = extensionOf(name)
	node.Size = size
	node.FileCount = 1

	return node
}

func baseName(path string) string {
	cleaned := filepath.Clean(path)
	if cleaned == string(filepath.Separator) || cleaned == "." {
		return cleaned
	}
	return filepath.Base(cleaned)
}

func extensionOf(name string) string {
	ext := filepath.Ext(name)
	// ".bashrc" has no extension, the dot only marks it hidden
	if len(ext) <= 1 || ext == name {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// IsLeaf returns whether the node can never hold children.
func (node *Node) IsLeaf() bool {
	return !node.IsDirectory
}

// AttachChildren sets the children of a directory node and recomputes its size,
// file count and child order. Ancestors are not updated.
func (node *Node) AttachChildren(children []*Node) {
	if !node.IsDirectory {
		return
	}

	if children == nil {
		children = []*Node{}
	}

	node.Children = children
	node.aggregate()
}

// aggregate recomputes size and file count from the direct children, and sorts
// them by size in descending order, preserving discovery order on ties.
func (node *Node) aggregate() {
	sortBySize(node.Children)

	var size, count int64
	for _, child := range node.Children {
		size += child.Size
		count += child.FileCount
	}

	node.Size = size
	node.FileCount = count
}

func sortBySize(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Size > nodes[j].Size
	})
}

// Aggregate runs aggregation bottom-up over the whole subtree rooted at node.
func Aggregate(node *Node) {
	if !node.IsDirectory {
		return
	}

	for _, child := range node.Children {
		Aggregate(child)
	}

	node.aggregate()
}

// FindByPath looks for the node with the specified absolute path in depth-first order.
func (node *Node) FindByPath(target string) (*Node, bool) {
	if node.Path == target {
		return node, true
	}

	for _, child := range node.Children {
		if found, ok := child.FindByPath(target); ok {
			return found, true
		}
	}

	return nil, false
}

// CollectLeaves returns all leaf nodes of the subtree in depth-first order.
func (node *Node) CollectLeaves() []*Node {
	var leaves []*Node
	node.Traverse(func(n *Node, _ int) error {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return nil
	})
	return leaves
}

// Count returns the number of nodes in the subtree, including node itself.
func (node *Node) Count() int {
	count := 1
	for _, child := range node.Children {
		count += child.Count()
	}
	return count
}

// Traverse applies actionFunc to every node of the subtree in depth-first
// pre-order, along with its depth relative to node. Traversal stops at the
// first error returned by actionFunc.
func (node *Node) Traverse(actionFunc func(node *Node, depth int) error) error {
	return node.traverse(0, actionFunc)
}

func (node *Node) traverse(depth int, actionFunc func(node *Node, depth int) error) error {
	if err := actionFunc(node, depth); err != nil {
		return err
	}

	for _, child := range node.Children {
		if err := child.traverse(depth+1, actionFunc); err != nil {
			return err
		}
	}

	return nil
}
