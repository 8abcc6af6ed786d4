package export

import (
	"encoding/json"
	"io"

	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
)

// WriteJSON writes the whole tree as a JSON document, in the same shape that
// `dux scan --json` emits for remote scans.
func WriteJSON(w io.Writer, root *tree.Node, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(tree.NewDocument(root)); err != nil {
		return errors.WithMessage(err, "failed to encode tree")
	}

	return nil
}
