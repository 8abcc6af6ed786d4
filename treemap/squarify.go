package treemap

import (
	"math"

	"github.com/dux-project/dux/tree"
)

type placement struct {
	node   *tree.Node
	bounds Bounds
}

type weighted struct {
	node *tree.Node
	area float64
}

// squarify tiles bounds with nodes, each taking an area proportional to its size.
// Nodes are expected in descending size order. Zero-size nodes take no area and are
// not placed. The union of all placements is exactly bounds.
func squarify(nodes []*tree.Node, bounds Bounds) []placement {
	var total int64
	for _, node := range nodes {
		if node.Size > 0 {
			total += node.Size
		}
	}

	if total == 0 || bounds.Width <= 0 || bounds.Height <= 0 {
		return nil
	}

	scale := bounds.Area() / float64(total)

	items := make([]weighted, 0, len(nodes))
	for _, node := range nodes {
		if node.Size > 0 {
			items = append(items, weighted{node, float64(node.Size) * scale})
		}
	}

	placements := make([]placement, 0, len(items))
	remaining := bounds

	var row []weighted
	for i := 0; i < len(items); {
		side := math.Min(remaining.Width, remaining.Height)

		if len(row) == 0 || worst(append(row, items[i]), side) <= worst(row, side) {
			row = append(row, items[i])
			i++
			continue
		}

		placements = layoutRow(placements, row, &remaining, false)
		row = row[:0:0]
	}

	return layoutRow(placements, row, &remaining, true)
}

// worst returns the worst aspect ratio of the items of a row laid along side.
func worst(row []weighted, side float64) float64 {
	var sum, largest float64
	smallest := math.Inf(1)

	for _, item := range row {
		sum += item.area
		smallest = math.Min(smallest, item.area)
		largest = math.Max(largest, item.area)
	}

	if sum == 0 || side == 0 {
		return math.Inf(1)
	}

	side2, sum2 := side*side, sum*sum

	return math.Max(side2*largest/sum2, sum2/(side2*smallest))
}

// layoutRow places a row along the shorter side of the remaining bounds, and
// shrinks them by the row thickness. The last row takes all the remaining space, and
// the last item of a row takes the rest of the side, so rounding never leaves gaps.
func layoutRow(placements []placement, row []weighted, remaining *Bounds, last bool) []placement {
	if len(row) == 0 {
		return placements
	}

	var rowArea float64
	for _, item := range row {
		rowArea += item.area
	}

	if remaining.Width >= remaining.Height {
		// column on the left, items stacked top down
		thickness := rowArea / remaining.Height
		if last || thickness > remaining.Width {
			thickness = remaining.Width
		}

		y := remaining.Y
		for i, item := range row {
			height := item.area / thickness
			if i == len(row)-1 {
				height = remaining.Y + remaining.Height - y
			}

			placements = append(placements, placement{item.node, Bounds{remaining.X, y, thickness, height}})
			y += height
		}

		remaining.X += thickness
		remaining.Width -= thickness
	} else {
		// row on the top, items placed left to right
		thickness := rowArea / remaining.Width
		if last || thickness > remaining.Height {
			thickness = remaining.Height
		}

		x := remaining.X
		for i, item := range row {
			width := item.area / thickness
			if i == len(row)-1 {
				width = remaining.X + remaining.Width - x
			}

			placements = append(placements, placement{item.node, Bounds{x, remaining.Y, width, thickness}})
			x += width
		}

		remaining.Y += thickness
		remaining.Height -= thickness
	}

	return placements
}
