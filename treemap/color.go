package treemap

import "github.com/dux-project/dux/tree"

var categoryColors = map[tree.Category]Color{
	tree.CategoryDocuments: {255, 165, 0},
	tree.CategoryImages:    {50, 205, 50},
	tree.CategoryVideo:     {138, 43, 226},
	tree.CategoryAudio:     {65, 105, 225},
	tree.CategoryArchive:   {220, 20, 60},
	tree.CategoryCode:      {0, 206, 209},
	tree.CategoryData:      {241, 196, 15},
	tree.CategorySystem:    {169, 169, 169},
	tree.CategoryOther:     {100, 149, 237},
}

// CategoryColor returns the fixed color of a file category.
func CategoryColor(category tree.Category) Color {
	if color, ok := categoryColors[category]; ok {
		return color
	}
	return categoryColors[tree.CategoryOther]
}

// Darken scales every channel by 1 - factor, with factor clamped to [0, 1].
func Darken(color Color, factor float64) Color {
	factor = max(0, min(1, factor))
	scale := 1 - factor

	return Color{
		R: uint8(float64(color.R) * scale),
		G: uint8(float64(color.G) * scale),
		B: uint8(float64(color.B) * scale),
	}
}
