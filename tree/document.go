package tree

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Document is the JSON representation of a node, as emitted by `dux scan --json`
// and consumed by the remote adapter when the companion tool is installed.
type Document struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Size      int64       `json:"size"`
	IsDir     bool        `json:"is_dir"`
	IsHidden  *bool       `json:"is_hidden,omitempty"`
	Extension *string     `json:"extension,omitempty"`
	Children  []*Document `json:"children,omitempty"`
	FileCount *int64      `json:"file_count,omitempty"`
}

// NewDocument converts the subtree rooted at node into its JSON document.
func NewDocument(node *Node) *Document {
	hidden := node.IsHidden
	count := node.FileCount

	doc := Document{
		Name:      node.Name,
		Path:      node.Path,
		Size:      node.Size,
		IsDir:     node.IsDirectory,
		IsHidden:  &hidden,
		FileCount: &count,
	}

	if len(node.Extension) > 0 {
		ext := node.Extension
		doc.Extension = &ext
	}

	for _, child := range node.Children {
		doc.Children = append(doc.Children, NewDocument(child))
	}

	return &doc
}

// ParseDocument decodes a JSON document into a node tree. Aggregated fields of a
// directory are trusted when file_count is present, otherwise they are
// recomputed bottom-up from the children.
func ParseDocument(data []byte) (*Node, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithMessage(err, "failed to unmarshal tree document")
	}

	if len(doc.Path) == 0 {
		return nil, errors.New("tree document has no path")
	}

	return doc.ToNode(), nil
}

// ToNode converts the document and all its descendants into nodes.
func (doc *Document) ToNode() *Node {
	node := New(doc.Path, doc.IsDir, false, doc.Size, nil)

	if len(doc.Name) > 0 {
		node.Name = doc.Name
	}
	if doc.IsHidden != nil {
		node.IsHidden = *doc.IsHidden
	}
	if doc.Extension != nil && !doc.IsDir {
		node.Extension = strings.ToLower(strings.TrimPrefix(*doc.Extension, "."))
	}

	if !doc.IsDir {
		return node
	}

	children := make([]*Node, 0, len(doc.Children))
	for _, child := range doc.Children {
		children = append(children, child.ToNode())
	}

	if doc.FileCount == nil {
		node.AttachChildren(children)
		return node
	}

	node.Children = children
	node.Size = doc.Size
	node.FileCount = *doc.FileCount
	sortBySize(node.Children)

	return node
}
