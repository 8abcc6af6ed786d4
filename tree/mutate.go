package tree

import "github.com/pkg/errors"

// ErrRootRemoval is returned when trying to remove the root of a tree.
var ErrRootRemoval = errors.New("cannot remove the root node")

// Remove detaches the node with the specified path from the tree rooted at root,
// typically after the entry was deleted or trashed on disk. Every ancestor of the
// removed node is re-aggregated, including child order, up to root.
//
// Remove must not run concurrently with a layout pass over the same tree.
func Remove(root *Node, path string) (*Node, error) {
	if root.Path == path {
		return nil, ErrRootRemoval
	}

	removed := remove(root, path)
	if removed == nil {
		return nil, errors.Errorf("path not found: '%s'", path)
	}

	return removed, nil
}

// remove searches the subtree for path and, on the way back up, re-aggregates
// every directory on the path from the removed node to root.
func remove(node *Node, path string) *Node {
	for i, child := range node.Children {
		if child.Path == path {
			children := append(node.Children[:i:i], node.Children[i+1:]...)
			node.AttachChildren(children)
			return child
		}

		if removed := remove(child, path); removed != nil {
			node.aggregate()
			return removed
		}
	}

	return nil
}
