package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/dux-project/dux/common/metrics"
	"github.com/dux-project/dux/duplicates"
	"github.com/dux-project/dux/export"
	"github.com/dux-project/dux/remote"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/tree"
	"github.com/dux-project/dux/treemap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	sourceLocal  = "local"
	sourceRemote = "remote"
)

// Status is a snapshot of the session scan state.
type Status struct {
	State    string        `json:"state"`
	Source   string        `json:"source,omitempty"`
	Progress scan.Progress `json:"progress"`
	Error    string        `json:"error,omitempty"`
	Partial  bool          `json:"partial"`
	Root     string        `json:"root,omitempty"` // Root path of the current tree
	Size     int64         `json:"size"`
	Files    int64         `json:"files"`
}

// Session holds at most one running scan and the tree of the last successful scan.
//
// The tree is only replaced by a completed scan. Mutations of the tree and layouts
// are serialized, so a node removal never races a layout pass.
type Session struct {
	treeMu     sync.RWMutex
	root       *tree.Node
	rootSource string
	partial    bool

	scanMu   sync.Mutex
	handle   *scan.Handle
	finished chan struct{}
	source   string
	state    scan.State
	progress scan.Progress
	lastErr  error
	diskPath string

	engine  *treemap.Engine
	layouts singleflight.Group

	adapter *remote.Adapter
	store   remote.ProfileStore
	logger  *logrus.Logger
}

// NewSession creates a session. Remote scans go through adapter, with profiles kept
// in store.
func NewSession(engine *treemap.Engine, adapter *remote.Adapter, store remote.ProfileStore, logOpt ...common.LogOption) *Session {
	return &Session{
		engine:  engine,
		adapter: adapter,
		store:   store,
		logger:  common.NewLogger(logOpt...),
	}
}

// StartLocal starts to scan a local directory in background.
func (s *Session) StartLocal(path string, opt scan.Options) error {
	scanner := scan.NewScanner(path, opt, common.WithLogger(s.logger))
	return s.start(sourceLocal, path, scanner)
}

// StartRemote starts to scan a remote directory in background with a stored profile.
func (s *Session) StartRemote(profileID, path string) error {
	profile, ok := s.store.Get(profileID)
	if !ok {
		return ErrProfileNotFound.WithData(profileID)
	}

	return s.start(sourceRemote, "", s.adapter.Source(profile, path))
}

func (s *Session) start(source, diskPath string, src scan.Source) error {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	if s.state == scan.StateScanning {
		return ErrScanInProgress
	}

	s.source = source
	s.state = scan.StateScanning
	s.progress = scan.Progress{StartTime: time.Now()}
	s.lastErr = nil

	if len(diskPath) > 0 {
		s.diskPath = diskPath
	}

	metrics.RecordScanStarted(source)

	s.handle = scan.Start(context.Background(), src, scan.Callbacks{
		OnProgress: s.onProgress,
		OnComplete: s.onComplete,
		OnError:    s.onError,
	})

	s.finished = make(chan struct{})
	go s.wait(s.handle, source, s.finished)

	return nil
}

func (s *Session) wait(handle *scan.Handle, source string, finished chan struct{}) {
	state := handle.Wait()

	s.scanMu.Lock()
	s.state = state
	progress := s.progress
	s.scanMu.Unlock()

	close(finished)

	metrics.RecordScanFinished(source, state.String(), time.Since(progress.StartTime),
		progress.FilesScanned, progress.DirectoriesScanned, progress.BytesScanned)

	s.logger.WithFields(logrus.Fields{
		"source": source,
		"state":  state,
		"files":  progress.FilesScanned,
	}).Info("Scan finished")
}

func (s *Session) onProgress(progress scan.Progress) {
	s.scanMu.Lock()
	s.progress = progress
	s.scanMu.Unlock()
}

func (s *Session) onComplete(result *scan.Result) {
	s.scanMu.Lock()
	source := s.source
	s.scanMu.Unlock()

	s.treeMu.Lock()
	s.root = result.Root
	s.rootSource = source
	s.partial = result.Partial
	s.treeMu.Unlock()

	metrics.RecordTreeSize(result.Root.Size)

	s.scanMu.Lock()
	s.progress = result.Progress
	s.scanMu.Unlock()
}

func (s *Session) onError(err error) {
	s.scanMu.Lock()
	s.lastErr = err
	s.scanMu.Unlock()

	s.logger.WithError(err).Warn("Scan failed")
}

// Cancel cancels the running scan if any.
func (s *Session) Cancel() {
	s.scanMu.Lock()
	handle := s.handle
	s.scanMu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
}

// Wait blocks until the running scan, if any, terminates and returns the state of
// the last scan.
func (s *Session) Wait() scan.State {
	s.scanMu.Lock()
	finished := s.finished
	s.scanMu.Unlock()

	if finished != nil {
		<-finished
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.state
}

// Status returns the current scan state and progress.
func (s *Session) Status() Status {
	s.scanMu.Lock()
	status := Status{
		State:    s.state.String(),
		Source:   s.source,
		Progress: s.progress,
	}
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	s.scanMu.Unlock()

	s.treeMu.RLock()
	if s.root != nil {
		status.Root = s.root.Path
		status.Size = s.root.Size
		status.Files = s.root.FileCount
		status.Partial = s.partial
	}
	s.treeMu.RUnlock()

	return status
}

// DiskPath returns the root of the last local scan, if any.
func (s *Session) DiskPath() string {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.diskPath
}

func (s *Session) locate(path string) (*tree.Node, error) {
	if s.root == nil {
		return nil, ErrNoTree
	}

	if len(path) == 0 {
		return s.root, nil
	}

	node, ok := s.root.FindByPath(path)
	if !ok {
		return nil, ErrNodeNotFound.WithData(path)
	}

	return node, nil
}

// Layout lays out the subtree at path, or the whole tree if path is empty. Identical
// concurrent requests share a single layout pass.
func (s *Session) Layout(path string, bounds treemap.Bounds, maxDepth, maxRects int) ([]treemap.Rect, error) {
	key := fmt.Sprintf("%v|%v|%v|%v|%v", path, bounds.Width, bounds.Height, maxDepth, maxRects)

	value, err, _ := s.layouts.Do(key, func() (interface{}, error) {
		s.treeMu.RLock()
		defer s.treeMu.RUnlock()

		node, err := s.locate(path)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		rects := s.engine.Layout(node, bounds, maxDepth, maxRects)
		metrics.RecordLayout(len(rects), time.Since(start))

		return rects, nil
	})

	if err != nil {
		return nil, err
	}

	return value.([]treemap.Rect), nil
}

// NodeInfo is a copy of the plain fields of a node, safe to use once the tree lock
// is released.
type NodeInfo struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	FileCount   int64  `json:"fileCount"`
	IsDirectory bool   `json:"isDirectory"`
}

func newNodeInfo(node *tree.Node) NodeInfo {
	return NodeInfo{node.Path, node.Name, node.Size, node.FileCount, node.IsDirectory}
}

// Search looks for nodes whose name contains query.
func (s *Session) Search(query string, limit int) ([]NodeInfo, error) {
	s.treeMu.RLock()
	defer s.treeMu.RUnlock()

	if s.root == nil {
		return nil, ErrNoTree
	}

	nodes := s.root.Search(query, limit)

	infos := make([]NodeInfo, 0, len(nodes))
	for _, node := range nodes {
		infos = append(infos, newNodeInfo(node))
	}

	return infos, nil
}

// Remove detaches the node at path from the tree, e.g. after it was deleted, and
// re-aggregates its ancestors.
func (s *Session) Remove(path string) (NodeInfo, error) {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()

	if s.root == nil {
		return NodeInfo{}, ErrNoTree
	}

	removed, err := tree.Remove(s.root, path)
	if errors.Is(err, tree.ErrRootRemoval) {
		return NodeInfo{}, ErrRootRemoval
	}

	if err != nil {
		return NodeInfo{}, ErrNodeNotFound.WithData(path)
	}

	metrics.RecordTreeSize(s.root.Size)

	return newNodeInfo(removed), nil
}

// Export writes the tree in the specified format: "json", "csv" or "top" for the
// largest files.
func (s *Session) Export(w io.Writer, format string, top int) error {
	s.treeMu.RLock()
	defer s.treeMu.RUnlock()

	if s.root == nil {
		return ErrNoTree
	}

	switch format {
	case "json":
		return export.WriteJSON(w, s.root, false)
	case "csv":
		return export.WriteCSV(w, s.root)
	case "top":
		return export.WriteTopJSON(w, s.root, top)
	default:
		return ErrUnknownFormat.WithData(format)
	}
}

// CategoryStats returns the usage per file category of the tree.
func (s *Session) CategoryStats() ([]export.CategoryStat, error) {
	s.treeMu.RLock()
	defer s.treeMu.RUnlock()

	if s.root == nil {
		return nil, ErrNoTree
	}

	return export.CategoryStats(s.root), nil
}

// Duplicates finds files with identical content in the tree of the last local
// scan. Candidates are collected under the tree lock, while hashing runs without
// it so that the tree stays available meanwhile.
func (s *Session) Duplicates(ctx context.Context, opt duplicates.Options) (*duplicates.Result, error) {
	opt.Normalize()

	s.treeMu.RLock()
	if s.root == nil {
		s.treeMu.RUnlock()
		return nil, ErrNoTree
	}

	if s.rootSource != sourceLocal {
		s.treeMu.RUnlock()
		return nil, ErrRemoteTree
	}

	files := duplicates.Candidates(s.root, opt)
	s.treeMu.RUnlock()

	finder := duplicates.NewFinder(opt, common.WithLogger(s.logger))

	return finder.Find(ctx, files, nil)
}
