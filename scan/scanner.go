package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/dux-project/dux/common/parallel"
	"github.com/dux-project/dux/common/util"
	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures a local scan.
type Options struct {
	MaxDepth         int           // Max directory depth to descend, 0 for unlimited
	IncludeHidden    bool          // Include entries whose name starts with a dot
	Routines         int           // Routines to scan top level directories, <= 1 for sequential
	ProgressEntries  int           // Emit progress at least every N entries, defaults to 100
	ProgressInterval time.Duration // Emit progress at least every interval, defaults to 100ms
}

// Scanner walks a local directory tree in depth-first post-order, and aggregates
// sizes bottom-up as soon as every directory is complete.
type Scanner struct {
	root   string
	opt    Options
	logger *logrus.Logger
}

var _ Source = (*Scanner)(nil)

// NewScanner creates a scanner for the specified root directory.
func NewScanner(root string, opt Options, logOpt ...common.LogOption) *Scanner {
	return &Scanner{
		root:   root,
		opt:    opt,
		logger: common.NewLogger(logOpt...),
	}
}

// Root returns the scan root as configured.
func (s *Scanner) Root() string {
	return s.root
}

// Start scans in background, see Start.
func (s *Scanner) Start(ctx context.Context, callbacks Callbacks) *Handle {
	return Start(ctx, s, callbacks)
}

// CheckRoot returns a *RootError if path cannot be scanned as a directory.
func CheckRoot(path string) error {
	_, _, err := checkRoot(path)
	return err
}

func checkRoot(path string) (string, os.FileInfo, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return "", nil, &RootError{path, RootInaccessible, err}
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", nil, newRootError(root, err)
	}

	if !info.IsDir() {
		return "", nil, &RootError{Path: root, Reason: RootNotDirectory}
	}

	return root, info, nil
}

// Scan walks the root directory and returns the aggregated tree. Unreadable
// directories and vanished entries are skipped silently. A *RootError is returned
// if the root itself cannot be scanned, and ErrCancelled once ctx is cancelled.
//
// Every call starts from fresh counters.
func (s *Scanner) Scan(ctx context.Context, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()

	root, info, err := checkRoot(s.root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, newRootError(root, err)
	}

	w := walker{
		opt:      s.opt,
		counter:  NewCounter(onProgress, s.opt.ProgressEntries, s.opt.ProgressInterval),
		reminder: util.NewReminder(s.logger, 5*time.Second),
	}

	s.logger.WithFields(logrus.Fields{
		"root":     root,
		"maxDepth": s.opt.MaxDepth,
		"hidden":   s.opt.IncludeHidden,
	}).Debug("Start to scan directory")

	modTime := info.ModTime()
	rootNode := tree.New(root, true, false, 0, &modTime)

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}
	w.counter.AddDirectory(ctx, root)

	var children []*tree.Node
	if s.opt.Routines > 1 {
		children, err = w.processParallel(ctx, root, entries, 1)
	} else {
		children, err = w.processEntries(ctx, root, entries, 1)
	}

	if err != nil {
		s.logger.WithField("root", root).Debug("Scan cancelled")
		return nil, err
	}

	rootNode.AttachChildren(children)

	result := Result{
		Root:     rootNode,
		Progress: w.counter.Snapshot(true),
		Elapsed:  time.Since(start),
	}

	s.logger.WithFields(logrus.Fields{
		"root":    root,
		"files":   result.Progress.FilesScanned,
		"dirs":    result.Progress.DirectoriesScanned,
		"size":    result.Root.Size,
		"elapsed": result.Elapsed,
	}).Debug("Succeeded to scan directory")

	return &result, nil
}

type walker struct {
	opt      Options
	counter  *Counter
	reminder *util.Reminder
}

func (w *walker) canDescend(depth int) bool {
	return w.opt.MaxDepth <= 0 || depth < w.opt.MaxDepth
}

// walkDir lists the directory and attaches its children. An unreadable directory
// keeps size 0 and no children.
func (w *walker) walkDir(ctx context.Context, node *tree.Node, depth int) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}

	entries, err := os.ReadDir(node.Path)
	if err != nil {
		w.reminder.Remind("Skip unreadable directory", logrus.Fields{"path": node.Path, "error": err})
		return nil
	}

	children, err := w.processEntries(ctx, node.Path, entries, depth+1)
	if err != nil {
		return err
	}

	node.AttachChildren(children)

	return nil
}

// processEntries builds the nodes of the specified directory entries, which are
// located at the specified depth below the scan root.
func (w *walker) processEntries(ctx context.Context, dir string, entries []fs.DirEntry, depth int) ([]*tree.Node, error) {
	children := make([]*tree.Node, 0, len(entries))

	for _, entry := range entries {
		child, err := w.processEntry(ctx, dir, entry, depth)
		if err != nil {
			return nil, err
		}

		if child != nil {
			children = append(children, child)
		}
	}

	return children, nil
}

func (w *walker) processEntry(ctx context.Context, dir string, entry fs.DirEntry, depth int) (*tree.Node, error) {
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	name := entry.Name()
	if !w.opt.IncludeHidden && strings.HasPrefix(name, ".") {
		return nil, nil
	}

	path := filepath.Join(dir, name)

	// DirEntry.Info does not follow symbolic links
	info, err := entry.Info()
	if err != nil {
		return nil, nil
	}

	modTime := info.ModTime()

	if info.IsDir() {
		node := tree.New(path, true, false, 0, &modTime)
		w.counter.AddDirectory(ctx, path)
		w.reminder.RemindWith("Scanning directory", "path", path)

		if w.canDescend(depth) {
			if err := w.walkDir(ctx, node, depth); err != nil {
				return nil, err
			}
		}

		return node, nil
	}

	// links are not followed and occupy no space of their own
	isSymlink := info.Mode()&os.ModeSymlink != 0
	size := info.Size()
	if isSymlink {
		size = 0
	}

	node := tree.New(path, false, isSymlink, size, &modTime)
	w.counter.AddFile(ctx, path, node.Size)

	return node, nil
}

// processParallel builds the top level entries with several routines. Results are
// collected in discovery order, so the tree is identical to a sequential scan.
func (w *walker) processParallel(ctx context.Context, dir string, entries []fs.DirEntry, depth int) ([]*tree.Node, error) {
	job := entriesJob{
		walker:   w,
		dir:      dir,
		entries:  entries,
		depth:    depth,
		children: make([]*tree.Node, 0, len(entries)),
	}

	opt := parallel.SerialOption{Routines: w.opt.Routines}
	err := parallel.Serial(ctx, &job, len(entries), opt)

	// the pool reports either the task error or the context error on cancellation
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	if err != nil {
		return nil, err
	}

	return job.children, nil
}

type entriesJob struct {
	walker   *walker
	dir      string
	entries  []fs.DirEntry
	depth    int
	children []*tree.Node
}

func (job *entriesJob) ParallelDo(ctx context.Context, routine, task int) (interface{}, error) {
	child, err := job.walker.processEntry(ctx, job.dir, job.entries[task], job.depth)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to scan %s", job.entries[task].Name())
	}

	return child, nil
}

func (job *entriesJob) ParallelCollect(result *parallel.Result) error {
	if child := result.Value.(*tree.Node); child != nil {
		job.children = append(job.children, child)
	}

	return nil
}
