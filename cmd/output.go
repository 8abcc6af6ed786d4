package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dux-project/dux/export"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// outputArgs are the flags shared by commands that produce a tree.
type outputArgs struct {
	json  bool
	csv   string
	top   int
	stats bool

	timeout time.Duration
}

func (args *outputArgs) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&args.json, "json", false, "Write the tree as JSON document to stdout")
	cmd.Flags().StringVar(&args.csv, "csv", "", "Write all entries to the specified CSV file")
	cmd.Flags().IntVar(&args.top, "top", 20, "Number of largest files to print")
	cmd.Flags().BoolVar(&args.stats, "stats", false, "Print usage per file category")
	cmd.Flags().DurationVar(&args.timeout, "timeout", 0, "cli task timeout, 0 for no timeout")
}

// interruptContext returns a context cancelled on interrupt.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// context returns a context cancelled on interrupt or timeout.
func (args *outputArgs) context() (context.Context, context.CancelFunc) {
	ctx, stop := interruptContext()
	if args.timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, args.timeout)

	return ctx, func() {
		cancel()
		stop()
	}
}

// run scans source in background until completion, cancellation on interrupt, or
// failure.
func run(ctx context.Context, source scan.Source) (*scan.Result, error) {
	var (
		result *scan.Result
		err    error
	)

	handle := scan.Start(ctx, source, scan.Callbacks{
		OnProgress: func(progress scan.Progress) {
			logrus.WithFields(logrus.Fields{
				"files": progress.FilesScanned,
				"dirs":  progress.DirectoriesScanned,
				"bytes": progress.BytesScanned,
			}).Debug(progress.CurrentPath)
		},
		OnComplete: func(r *scan.Result) { result = r },
		OnError:    func(e error) { err = e },
	})

	switch handle.Wait() {
	case scan.StateCompleted:
		return result, nil
	case scan.StateCancelled:
		return nil, scan.ErrCancelled
	default:
		return nil, err
	}
}

func (args *outputArgs) write(result *scan.Result, elapsed time.Duration) error {
	root := result.Root

	if len(args.csv) > 0 {
		if err := writeCSVFile(args.csv, root); err != nil {
			return err
		}
	}

	if args.json {
		return export.WriteJSON(os.Stdout, root, false)
	}

	logrus.WithFields(logrus.Fields{
		"root":    root.Path,
		"size":    formatSize(root.Size),
		"files":   root.FileCount,
		"partial": result.Partial,
		"elapsed": elapsed,
	}).Info("Scan completed")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)

	if args.top > 0 {
		for _, entry := range export.TopEntries(root, args.top) {
			fmt.Fprintf(w, "%v\t%.1f%%\t%v\t%v\n", formatSize(entry.Size), entry.Percent, entry.Category, entry.Path)
		}
	}

	if args.stats {
		fmt.Fprintln(w)
		for _, stat := range export.CategoryStats(root) {
			if stat.Count > 0 {
				fmt.Fprintf(w, "%v\t%v files\t%v\t%.1f%%\n", stat.Category, stat.Count, formatSize(stat.Bytes), stat.Percent)
			}
		}
	}

	return w.Flush()
}

func writeCSVFile(name string, root *tree.Node) error {
	file, err := os.Create(name)
	if err != nil {
		return errors.WithMessage(err, "failed to create CSV file")
	}
	defer file.Close()

	if err = export.WriteCSV(file, root); err != nil {
		return err
	}

	logrus.WithField("file", name).Info("CSV exported")

	return nil
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
