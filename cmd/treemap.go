package cmd

import (
	"encoding/json"
	"os"

	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/treemap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	treemapArgs struct {
		width    float64
		height   float64
		maxDepth int
		maxRects int
		hidden   bool
		x, y     float64
	}

	treemapCmd = &cobra.Command{
		Use:   "treemap [path]",
		Short: "Scan a local directory and print the treemap rectangles as JSON",
		Args:  cobra.MaximumNArgs(1),
		Run:   layoutTreemap,
	}
)

func init() {
	treemapCmd.Flags().Float64Var(&treemapArgs.width, "width", 1920, "Width of the treemap")
	treemapCmd.Flags().Float64Var(&treemapArgs.height, "height", 1080, "Height of the treemap")
	treemapCmd.Flags().IntVar(&treemapArgs.maxDepth, "max-depth", 0, "Max nesting depth of rectangles, 0 for unlimited")
	treemapCmd.Flags().IntVar(&treemapArgs.maxRects, "max-rects", 10000, "Max number of rectangles")
	treemapCmd.Flags().BoolVar(&treemapArgs.hidden, "hidden", true, "Include hidden entries")
	treemapCmd.Flags().Float64Var(&treemapArgs.x, "x", -1, "Only print the innermost rectangle at (x, y)")
	treemapCmd.Flags().Float64Var(&treemapArgs.y, "y", -1, "Only print the innermost rectangle at (x, y)")

	rootCmd.AddCommand(treemapCmd)
}

func layoutTreemap(_ *cobra.Command, args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	ctx, cancel := interruptContext()
	defer cancel()

	scanner := scan.NewScanner(path, scan.Options{IncludeHidden: treemapArgs.hidden}, newLogOption())

	result, err := run(ctx, scanner)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Fatal("Failed to scan directory")
	}

	engine := treemap.NewEngine(treemap.Options{})
	bounds := treemap.Bounds{Width: treemapArgs.width, Height: treemapArgs.height}
	rects := engine.Layout(result.Root, bounds, treemapArgs.maxDepth, treemapArgs.maxRects)

	logrus.WithField("rects", len(rects)).Debug("Treemap laid out")

	var output interface{} = rects
	if treemapArgs.x >= 0 && treemapArgs.y >= 0 {
		output = treemap.HitTest(rects, treemapArgs.x, treemapArgs.y)
	}

	if err = json.NewEncoder(os.Stdout).Encode(output); err != nil {
		logrus.WithError(err).Fatal("Failed to write treemap")
	}
}
