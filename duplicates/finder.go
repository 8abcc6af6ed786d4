package duplicates

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/dux-project/dux/common/parallel"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/tree"
	"github.com/sirupsen/logrus"
)

const defaultMinSize = 1024

// Options configures duplicate detection.
type Options struct {
	MinSize         int64 // Files smaller than this are ignored, defaults to 1 KiB
	IncludeHidden   bool  // Include hidden files and the content of hidden directories
	Routines        int   // Routines to compute full hashes, defaults to GOMAXPROCS
	ProgressEntries int   // Emit progress at least every N hashed files, defaults to 100
}

// Normalize fills defaults for unset fields.
func (opt *Options) Normalize() {
	if opt.MinSize <= 0 {
		opt.MinSize = defaultMinSize
	}
}

// File is a duplicate candidate.
type File struct {
	Path    string     `json:"path"`
	Size    int64      `json:"size"`
	ModTime *time.Time `json:"modTime,omitempty"`
}

// Group is a set of files with identical content. Files are ordered by
// modification time, so the first one is the likely original.
type Group struct {
	Hash  string `json:"hash"`
	Size  int64  `json:"size"`
	Files []File `json:"files"`
}

// Wasted returns the bytes held by all copies but one.
func (g *Group) Wasted() int64 {
	return g.Size * int64(len(g.Files)-1)
}

// Result is the outcome of duplicate detection. Groups are ordered by wasted
// space in descending order.
type Result struct {
	Groups          []Group       `json:"groups"`
	TotalDuplicates int64         `json:"totalDuplicates"` // Files that could be removed
	WastedSpace     int64         `json:"wastedSpace"`
	Progress        scan.Progress `json:"progress"`
}

// Candidates collects the regular files of the tree eligible for detection, in
// depth-first order. Symbolic links are never candidates.
func Candidates(root *tree.Node, opt Options) []File {
	opt.Normalize()

	var files []File
	collectCandidates(root, opt, true, &files)

	return files
}

func collectCandidates(node *tree.Node, opt Options, isRoot bool, files *[]File) {
	if !isRoot && node.IsHidden && !opt.IncludeHidden {
		return
	}

	if node.IsDirectory {
		for _, child := range node.Children {
			collectCandidates(child, opt, false, files)
		}
		return
	}

	if node.IsSymlink || node.Size < opt.MinSize {
		return
	}

	*files = append(*files, File{node.Path, node.Size, node.ModTime})
}

// Finder detects duplicate files.
type Finder struct {
	opt    Options
	logger *logrus.Logger
}

// NewFinder creates a Finder.
func NewFinder(opt Options, logOpt ...common.LogOption) *Finder {
	opt.Normalize()

	return &Finder{
		opt:    opt,
		logger: common.NewLogger(logOpt...),
	}
}

// FindInTree detects duplicates among the candidates of a tree.
func (f *Finder) FindInTree(ctx context.Context, root *tree.Node, onProgress scan.ProgressFunc) (*Result, error) {
	return f.Find(ctx, Candidates(root, f.opt), onProgress)
}

// Find groups files by content. Files smaller than the minimum size are ignored.
// The phase of detection is announced through progress, and scan.ErrCancelled is
// returned once ctx is cancelled.
func (f *Finder) Find(ctx context.Context, files []File, onProgress scan.ProgressFunc) (*Result, error) {
	start := time.Now()
	counter := scan.NewCounter(onProgress, f.opt.ProgressEntries, 0)

	counter.Announce(ctx, "Grouping files by size...")
	bySize := groupBySize(files, f.opt.MinSize)

	counter.Announce(ctx, "Computing partial hashes...")
	partial, err := f.groupByPartialHash(ctx, counter, bySize)
	if err != nil {
		return nil, err
	}

	counter.Announce(ctx, "Computing full hashes...")
	groups, err := f.groupByFullHash(ctx, counter, partial)
	if err != nil {
		return nil, err
	}

	result := Result{
		Groups:   groups,
		Progress: counter.Snapshot(true),
	}

	for i := range groups {
		result.TotalDuplicates += int64(len(groups[i].Files) - 1)
		result.WastedSpace += groups[i].Wasted()
	}

	f.logger.WithFields(logrus.Fields{
		"files":   len(files),
		"groups":  len(groups),
		"wasted":  result.WastedSpace,
		"elapsed": time.Since(start),
	}).Debug("Succeeded to find duplicate files")

	return &result, nil
}

// groupBySize returns groups of at least two files of the same size, largest
// size first.
func groupBySize(files []File, minSize int64) [][]File {
	groups := make(map[int64][]File)
	for _, file := range files {
		if file.Size >= minSize {
			groups[file.Size] = append(groups[file.Size], file)
		}
	}

	sizes := make([]int64, 0, len(groups))
	for size, group := range groups {
		if len(group) > 1 {
			sizes = append(sizes, size)
		}
	}

	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })

	result := make([][]File, 0, len(sizes))
	for _, size := range sizes {
		result = append(result, groups[size])
	}

	return result
}

type partition struct {
	key   string
	files []File
}

// split partitions files by key, keeping the first appearance order of keys, and
// drops partitions with a single file. Files with an empty key are dropped.
func split(files []File, keys []string) []partition {
	var order []string
	partitions := make(map[string][]File)

	for i, file := range files {
		if len(keys[i]) == 0 {
			continue
		}

		if _, ok := partitions[keys[i]]; !ok {
			order = append(order, keys[i])
		}

		partitions[keys[i]] = append(partitions[keys[i]], file)
	}

	var result []partition
	for _, key := range order {
		if len(partitions[key]) > 1 {
			result = append(result, partition{key, partitions[key]})
		}
	}

	return result
}

func (f *Finder) groupByPartialHash(ctx context.Context, counter *scan.Counter, groups [][]File) ([][]File, error) {
	var result [][]File

	for _, group := range groups {
		keys := make([]string, len(group))

		for i, file := range group {
			if ctx.Err() != nil {
				return nil, scan.ErrCancelled
			}

			hash, err := hashFile(file.Path, partialHashSize)
			if err != nil {
				f.logger.WithError(err).Debug("Skip unreadable file")
			}

			keys[i] = hash
			counter.AddFile(ctx, file.Path, min(file.Size, partialHashSize))
		}

		for _, p := range split(group, keys) {
			result = append(result, p.files)
		}
	}

	return result, nil
}

func (f *Finder) groupByFullHash(ctx context.Context, counter *scan.Counter, groups [][]File) ([]Group, error) {
	job := fullHashJob{
		finder:  f,
		counter: counter,
	}

	for _, group := range groups {
		job.files = append(job.files, group...)
	}

	job.keys = make([]string, len(job.files))

	err := parallel.Serial(ctx, &job, len(job.files), parallel.SerialOption{Routines: f.opt.Routines})
	if ctx.Err() != nil {
		return nil, scan.ErrCancelled
	}

	if err != nil {
		return nil, err
	}

	var result []Group

	var offset int
	for _, group := range groups {
		keys := job.keys[offset : offset+len(group)]
		offset += len(group)

		for _, p := range split(group, keys) {
			sortByModTime(p.files)
			result = append(result, Group{
				Hash:  p.key,
				Size:  p.files[0].Size,
				Files: p.files,
			})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if wi, wj := result[i].Wasted(), result[j].Wasted(); wi != wj {
			return wi > wj
		}
		return result[i].Hash < result[j].Hash
	})

	return result, nil
}

func sortByModTime(files []File) {
	sort.SliceStable(files, func(i, j int) bool {
		ti, tj := modTimeOf(files[i]), modTimeOf(files[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return strings.Compare(files[i].Path, files[j].Path) < 0
	})
}

func modTimeOf(file File) time.Time {
	if file.ModTime == nil {
		return time.Time{}
	}
	return *file.ModTime
}

// fullHashJob hashes the candidate files in parallel. Unreadable files get an empty
// key.
type fullHashJob struct {
	finder  *Finder
	counter *scan.Counter
	files   []File
	keys    []string
}

func (job *fullHashJob) ParallelDo(ctx context.Context, routine, task int) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, scan.ErrCancelled
	}

	file := job.files[task]

	hash, err := hashFile(file.Path, 0)
	if err != nil {
		job.finder.logger.WithError(err).Debug("Skip unreadable file")
	}

	job.counter.AddFile(ctx, file.Path, file.Size)

	return hash, nil
}

func (job *fullHashJob) ParallelCollect(result *parallel.Result) error {
	job.keys[result.Task] = result.Value.(string)
	return nil
}
