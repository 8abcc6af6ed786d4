package cmd

import (
	"time"

	"github.com/dux-project/dux/scan"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	scanArgs struct {
		outputArgs

		maxDepth int
		hidden   bool
		routines int
	}

	scanCmd = &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a local directory",
		Args:  cobra.MaximumNArgs(1),
		Run:   scanLocal,
	}
)

func init() {
	scanArgs.register(scanCmd)

	scanCmd.Flags().IntVar(&scanArgs.maxDepth, "max-depth", 0, "Max depth to descend, 0 for unlimited")
	scanCmd.Flags().BoolVar(&scanArgs.hidden, "hidden", true, "Include hidden entries")
	scanCmd.Flags().IntVar(&scanArgs.routines, "routines", 1, "Number of routines to scan top level directories")

	rootCmd.AddCommand(scanCmd)
}

func scanLocal(_ *cobra.Command, args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	ctx, cancel := scanArgs.context()
	defer cancel()

	scanner := scan.NewScanner(path, scan.Options{
		MaxDepth:      scanArgs.maxDepth,
		IncludeHidden: scanArgs.hidden,
		Routines:      scanArgs.routines,
	}, newLogOption())

	start := time.Now()

	result, err := run(ctx, scanner)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Fatal("Failed to scan directory")
	}

	if err = scanArgs.write(result, time.Since(start)); err != nil {
		logrus.WithError(err).Fatal("Failed to write scan result")
	}
}
