package remote

import (
	"bufio"
	"bytes"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/dux-project/dux/tree"
)

// Entry is a single line of a flat remote listing.
type Entry struct {
	Path  string
	IsDir bool
	Size  int64
}

// ParseListing parses "path|type|size" lines, where type is "d" for directories.
// Fields are split from the right, so a path may contain "|" as long as the other
// fields do not. Malformed lines are skipped, and unparsable sizes count as 0.
func ParseListing(data []byte) []Entry {
	var entries []Entry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		sizeSep := strings.LastIndexByte(line, '|')
		if sizeSep <= 0 {
			continue
		}

		typeSep := strings.LastIndexByte(line[:sizeSep], '|')
		if typeSep <= 0 {
			continue
		}

		kind := line[typeSep+1 : sizeSep]
		size, err := strconv.ParseInt(strings.TrimSpace(line[sizeSep+1:]), 10, 64)
		if err != nil || size < 0 {
			size = 0
		}

		entries = append(entries, Entry{
			Path:  line[:typeSep],
			IsDir: kind == "d" || kind == "Directory",
			Size:  size,
		})
	}

	return entries
}

func depthOf(p string) int {
	if p == "/" {
		return 0
	}
	return strings.Count(p, "/")
}

// Reconstruct builds an aggregated tree rooted at root from a flat listing in any
// order. Entries whose parent is not listed are dropped, since their ancestors lie
// outside the listed depth or failed to list. The root is synthesized if it is not
// listed itself.
//
// If the root path is not listed at all, e.g. because the remote shell expanded
// it, the shallowest listed directory is used as root.
func Reconstruct(root string, entries []Entry) *tree.Node {
	sorted := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Path = path.Clean(entry.Path)
		sorted = append(sorted, entry)
	}

	// parents before children, and a total order for identical inputs
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if da, db := depthOf(a.Path), depthOf(b.Path); da != db {
			return da < db
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Size > b.Size
	})

	rootPath := path.Clean(root)
	if !containsPath(sorted, rootPath) {
		for _, entry := range sorted {
			if entry.IsDir {
				rootPath = entry.Path
				break
			}
		}
	}

	rootNode := tree.New(rootPath, true, false, 0, nil)
	nodes := map[string]*tree.Node{rootPath: rootNode}

	for _, entry := range sorted {
		if entry.Path == rootPath {
			if !entry.IsDir {
				// listing of a single file
				return tree.New(rootPath, false, false, entry.Size, nil)
			}
			continue
		}

		if _, ok := nodes[entry.Path]; ok {
			continue
		}

		parent, ok := nodes[path.Dir(entry.Path)]
		if !ok || !parent.IsDirectory {
			continue
		}

		node := tree.New(entry.Path, entry.IsDir, false, entry.Size, nil)
		parent.Children = append(parent.Children, node)
		nodes[entry.Path] = node
	}

	tree.Aggregate(rootNode)

	return rootNode
}

func containsPath(entries []Entry, p string) bool {
	for _, entry := range entries {
		if entry.Path == p {
			return true
		}
	}
	return false
}
