package export

import (
	"encoding/json"
	"io"

	"github.com/dux-project/dux/tree"
	"github.com/google/btree"
	"github.com/pkg/errors"
)

// Entry is a file listed in a top-N export.
type Entry struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Size     int64         `json:"size"`
	Category tree.Category `json:"category"`
	Percent  float64       `json:"percent"` // Share of the root size
}

// bySizeDesc orders by size descending, then by path.
func bySizeDesc(a, b *tree.Node) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	return a.Path < b.Path
}

// TopN returns the n largest files of the tree, ordered by size descending and then
// by path. Non-positive n returns all files.
func TopN(root *tree.Node, n int) []*tree.Node {
	largest := btree.NewG(32, bySizeDesc)

	for _, leaf := range root.CollectLeaves() {
		largest.ReplaceOrInsert(leaf)

		if n > 0 && largest.Len() > n {
			largest.DeleteMax()
		}
	}

	nodes := make([]*tree.Node, 0, largest.Len())
	largest.Ascend(func(node *tree.Node) bool {
		nodes = append(nodes, node)
		return true
	})

	return nodes
}

// TopEntries returns the n largest files along with their share of the root.
func TopEntries(root *tree.Node, n int) []Entry {
	nodes := TopN(root, n)
	entries := make([]Entry, 0, len(nodes))

	for _, node := range nodes {
		var percent float64
		if root.Size > 0 {
			percent = float64(node.Size) / float64(root.Size) * 100
		}

		entries = append(entries, Entry{
			Path:     node.Path,
			Name:     node.Name,
			Size:     node.Size,
			Category: node.Category(),
			Percent:  percent,
		})
	}

	return entries
}

// WriteTopJSON writes the n largest files as a JSON array.
func WriteTopJSON(w io.Writer, root *tree.Node, n int) error {
	if err := json.NewEncoder(w).Encode(TopEntries(root, n)); err != nil {
		return errors.WithMessage(err, "failed to encode largest files")
	}

	return nil
}
