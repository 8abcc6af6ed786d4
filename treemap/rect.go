package treemap

import (
	"fmt"

	"github.com/dux-project/dux/tree"
)

// Bounds is an axis-aligned rectangle, with the origin at the top left corner.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns width * height.
func (b Bounds) Area() float64 {
	return b.Width * b.Height
}

// Contains returns whether the point lies in the bounds. The right and bottom
// edges are exclusive, so that adjacent bounds never both contain a point.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Inset shrinks the bounds by padding on every side.
func (b Bounds) Inset(padding float64) Bounds {
	return Bounds{
		X:      b.X + padding,
		Y:      b.Y + padding,
		Width:  b.Width - 2*padding,
		Height: b.Height - 2*padding,
	}
}

// Color is an RGB color, encoded as "#rrggbb" in JSON.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Rect is a positioned and colored node of a treemap.
type Rect struct {
	Bounds
	NodeID      uint64        `json:"id"`
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	Size        int64         `json:"size"`
	IsDirectory bool          `json:"isDirectory"`
	Depth       int           `json:"depth"`    // Nesting level, 0 for children of the layout root
	Category    tree.Category `json:"category"` // Category of a file, dominant category of a directory
	Color       Color         `json:"color"`
}

// HitTest returns the innermost rectangle that contains the point, or nil. Rects
// must be in the order emitted by Layout, i.e. parents before children.
func HitTest(rects []Rect, x, y float64) *Rect {
	for i := len(rects) - 1; i >= 0; i-- {
		if rects[i].Contains(x, y) {
			return &rects[i]
		}
	}

	return nil
}
