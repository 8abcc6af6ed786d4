package tree

import (
	"strings"

	"github.com/pkg/errors"
)

var errSearchLimit = errors.New("search limit reached")

// Search returns nodes whose names contain query, case-insensitively, in
// depth-first order. The root itself is not matched. A non-positive limit
// means no limit.
func (node *Node) Search(query string, limit int) []*Node {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) == 0 {
		return nil
	}

	var result []*Node
	node.Traverse(func(n *Node, depth int) error {
		if depth == 0 || !strings.Contains(strings.ToLower(n.Name), query) {
			return nil
		}

		result = append(result, n)
		if limit > 0 && len(result) >= limit {
			return errSearchLimit
		}

		return nil
	})

	return result
}
