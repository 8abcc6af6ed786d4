package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dux-project/dux/duplicates"
	"github.com/dux-project/dux/scan"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	duplicatesArgs struct {
		minSize  int64
		hidden   bool
		routines int
		json     bool
		timeout  time.Duration
	}

	duplicatesCmd = &cobra.Command{
		Use:   "duplicates [path]",
		Short: "Find files with identical content in a local directory",
		Args:  cobra.MaximumNArgs(1),
		Run:   findDuplicates,
	}
)

func init() {
	duplicatesCmd.Flags().Int64Var(&duplicatesArgs.minSize, "min-size", 1024, "Ignore files smaller than this in bytes")
	duplicatesCmd.Flags().BoolVar(&duplicatesArgs.hidden, "hidden", false, "Include hidden files")
	duplicatesCmd.Flags().IntVar(&duplicatesArgs.routines, "routines", 0, "Number of routines to hash files, 0 for GOMAXPROCS")
	duplicatesCmd.Flags().BoolVar(&duplicatesArgs.json, "json", false, "Write duplicate groups as JSON to stdout")
	duplicatesCmd.Flags().DurationVar(&duplicatesArgs.timeout, "timeout", 0, "cli task timeout, 0 for no timeout")

	rootCmd.AddCommand(duplicatesCmd)
}

func findDuplicates(_ *cobra.Command, args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	output := outputArgs{timeout: duplicatesArgs.timeout}
	ctx, cancel := output.context()
	defer cancel()

	scanner := scan.NewScanner(path, scan.Options{IncludeHidden: duplicatesArgs.hidden}, newLogOption())

	scanned, err := run(ctx, scanner)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Fatal("Failed to scan directory")
	}

	finder := duplicates.NewFinder(duplicates.Options{
		MinSize:       duplicatesArgs.minSize,
		IncludeHidden: duplicatesArgs.hidden,
		Routines:      duplicatesArgs.routines,
	}, newLogOption())

	result, err := finder.FindInTree(ctx, scanned.Root, func(progress scan.Progress) {
		logrus.WithField("files", progress.FilesScanned).Debug(progress.CurrentPath)
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to find duplicate files")
	}

	if duplicatesArgs.json {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err = encoder.Encode(result); err != nil {
			logrus.WithError(err).Fatal("Failed to write duplicate groups")
		}
		return
	}

	for _, group := range result.Groups {
		fmt.Printf("%v x %v, %v wasted\n", len(group.Files), formatSize(group.Size), formatSize(group.Wasted()))
		for _, file := range group.Files {
			fmt.Printf("  %v\n", file.Path)
		}
	}

	logrus.WithFields(logrus.Fields{
		"groups":     len(result.Groups),
		"duplicates": result.TotalDuplicates,
		"wasted":     formatSize(result.WastedSpace),
	}).Info("Duplicate search completed")
}
