package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
)

var csvHeader = []string{"path", "name", "type", "size", "file_count", "extension", "category", "depth"}

func nodeType(node *tree.Node) string {
	switch {
	case node.IsDirectory:
		return "directory"
	case node.IsSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// WriteCSV writes one row per node in depth-first pre-order, i.e. in the same order
// as a file tree browser lists them.
func WriteCSV(w io.Writer, root *tree.Node) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return errors.WithMessage(err, "failed to write CSV header")
	}

	err := root.Traverse(func(node *tree.Node, depth int) error {
		category := ""
		if !node.IsDirectory {
			category = string(node.Category())
		}

		return writer.Write([]string{
			node.Path,
			node.Name,
			nodeType(node),
			strconv.FormatInt(node.Size, 10),
			strconv.FormatInt(node.FileCount, 10),
			node.Extension,
			category,
			strconv.Itoa(depth),
		})
	})
	if err != nil {
		return errors.WithMessage(err, "failed to write CSV row")
	}

	writer.Flush()

	return errors.WithMessage(writer.Error(), "failed to flush CSV")
}
