package export

import (
	"github.com/dux-project/dux/tree"
)

// CategoryStat is the usage of a single file category.
type CategoryStat struct {
	Category tree.Category `json:"category"`
	Count    int64         `json:"count"`
	Bytes    int64         `json:"bytes"`
	Percent  float64       `json:"percent"` // Share of the bytes of all files
}

// CategoryStats returns the usage of every category in the order of
// tree.Categories, including categories without files. Empty directories are
// skipped and symbolic links count as other.
func CategoryStats(root *tree.Node) []CategoryStat {
	counts := make(map[tree.Category]int64)
	bytes := make(map[tree.Category]int64)

	var total int64
	for _, leaf := range root.CollectLeaves() {
		if leaf.IsDirectory {
			continue
		}

		category := leaf.Category()
		counts[category]++
		bytes[category] += leaf.Size
		total += leaf.Size
	}

	stats := make([]CategoryStat, 0, len(tree.Categories))
	for _, category := range tree.Categories {
		stat := CategoryStat{
			Category: category,
			Count:    counts[category],
			Bytes:    bytes[category],
		}

		if total > 0 {
			stat.Percent = float64(stat.Bytes) / float64(total) * 100
		}

		stats = append(stats, stat)
	}

	return stats
}
