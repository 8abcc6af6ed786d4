package remote

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultTool         = "dux"
	defaultListingDepth = 4
)

// Options configures remote scans.
type Options struct {
	Tool            string // Companion tool looked up on the remote host, defaults to "dux"
	ListingDepth    int    // Max depth of the fallback listing, defaults to 4
	ProgressEntries int    // Emit progress at least every N entries, defaults to 100
}

// Normalize fills defaults for unset fields.
func (opt *Options) Normalize() {
	if len(opt.Tool) == 0 {
		opt.Tool = defaultTool
	}

	if opt.ListingDepth <= 0 {
		opt.ListingDepth = defaultListingDepth
	}
}

// Adapter scans directories of remote hosts through a Runner. It prefers the
// companion tool when installed on the remote host, and falls back to a flat
// listing bounded in depth otherwise.
type Adapter struct {
	runner Runner
	store  ProfileStore
	opt    Options
	logger *logrus.Logger
}

// NewAdapter creates an Adapter. The store is optional, and used to record the
// last use of a profile after a successful scan.
func NewAdapter(runner Runner, store ProfileStore, opt Options, logOpt ...common.LogOption) *Adapter {
	opt.Normalize()

	return &Adapter{
		runner: runner,
		store:  store,
		opt:    opt,
		logger: common.NewLogger(logOpt...),
	}
}

// Source returns a scan.Source for the specified profile and path, so that a remote
// scan can be started and cancelled the same way as a local one.
func (a *Adapter) Source(profile *Profile, path string) scan.Source {
	return &source{a, profile, path}
}

type source struct {
	adapter *Adapter
	profile *Profile
	path    string
}

func (s *source) Scan(ctx context.Context, onProgress scan.ProgressFunc) (*scan.Result, error) {
	return s.adapter.Scan(ctx, s.profile, s.path, onProgress)
}

// Scan builds the tree of path on the remote host. An empty path falls back to the
// profile default path, or "/".
//
// A *ConnectionError is returned if the host cannot be reached, ErrNoData if nothing
// could be listed, and ErrCancelled once ctx is cancelled. When the listing command
// fails after producing output, the tree is still returned with Partial set.
func (a *Adapter) Scan(ctx context.Context, profile *Profile, path string, onProgress scan.ProgressFunc) (*scan.Result, error) {
	start := time.Now()

	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if len(path) == 0 {
		path = profile.DefaultPath
	}
	if len(path) == 0 {
		path = "/"
	}

	logger := a.logger.WithFields(logrus.Fields{
		"remote": profile.String(),
		"path":   path,
	})

	counter := scan.NewCounter(onProgress, a.opt.ProgressEntries, 0)
	counter.Announce(ctx, fmt.Sprintf("Connecting to %v...", profile.Host))

	installed, err := a.lookupTool(ctx, profile)
	if err != nil {
		return nil, err
	}

	var root *tree.Node
	var partial bool

	if installed {
		logger.Debug("Companion tool found, scan with JSON output")
		root, err = a.scanDocument(ctx, profile, path)

		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			logger.WithError(err).Warn("Companion tool failed, fall back to listing")
			installed = false
		}
	}

	if !installed {
		logger.Debug("Scan with flat listing")
		root, partial, err = a.scanListing(ctx, profile, path)
	}

	if err != nil {
		return nil, err
	}

	if err = count(ctx, counter, root); err != nil {
		return nil, err
	}

	a.markUsed(profile)

	result := scan.Result{
		Root:     root,
		Progress: counter.Snapshot(true),
		Partial:  partial,
		Elapsed:  time.Since(start),
	}

	logger.WithFields(logrus.Fields{
		"files":   result.Progress.FilesScanned,
		"size":    root.Size,
		"partial": partial,
		"elapsed": result.Elapsed,
	}).Debug("Succeeded to scan remote directory")

	return &result, nil
}

func (a *Adapter) run(ctx context.Context, profile *Profile, command string) (*Output, error) {
	output, err := a.runner.Run(ctx, profile, command)
	if err == nil {
		return output, nil
	}

	if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
		return nil, errors.WithMessage(ErrCancelled, err.Error())
	}

	return nil, err
}

// lookupTool returns whether the companion tool is installed on the remote host.
func (a *Adapter) lookupTool(ctx context.Context, profile *Profile) (bool, error) {
	output, err := a.run(ctx, profile, lookupCommand(a.opt.Tool))
	if err != nil {
		return false, err
	}

	return len(bytes.TrimSpace(output.Stdout)) > 0, nil
}

func (a *Adapter) scanDocument(ctx context.Context, profile *Profile, path string) (*tree.Node, error) {
	command := documentCommand(a.opt.Tool, path)

	output, err := a.run(ctx, profile, command)
	if err != nil {
		return nil, err
	}

	if output.ExitStatus != 0 || len(bytes.TrimSpace(output.Stdout)) == 0 {
		return nil, &CommandError{command, output.ExitStatus, strings.TrimSpace(string(output.Stderr))}
	}

	root, err := tree.ParseDocument(output.Stdout)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse remote scan output")
	}

	return root, nil
}

// scanListing attempts the listing commands in order, and reconstructs the tree from
// the output of the first one that lists anything.
func (a *Adapter) scanListing(ctx context.Context, profile *Profile, path string) (*tree.Node, bool, error) {
	var output *Output

	for _, command := range listingCommands(path, a.opt.ListingDepth) {
		var err error
		if output, err = a.run(ctx, profile, command); err != nil {
			return nil, false, err
		}

		if len(bytes.TrimSpace(output.Stdout)) > 0 {
			break
		}
	}

	entries := ParseListing(output.Stdout)
	if len(entries) == 0 {
		if stderr := strings.TrimSpace(string(output.Stderr)); len(stderr) > 0 {
			return nil, false, errors.WithMessagef(ErrNoData, "%v: %v", path, stderr)
		}
		return nil, false, errors.WithMessagef(ErrNoData, "nothing listed at %v", path)
	}

	return Reconstruct(path, entries), output.ExitStatus != 0, nil
}

func (a *Adapter) markUsed(profile *Profile) {
	if a.store == nil {
		return
	}

	if err := a.store.MarkUsed(profile.ID, time.Now()); err != nil {
		a.logger.WithError(err).WithField("profile", profile.ID).Warn("Failed to mark connection profile used")
	}
}

// count accounts every node of the tree, which also emits throttled progress.
func count(ctx context.Context, counter *scan.Counter, root *tree.Node) error {
	return root.Traverse(func(node *tree.Node, _ int) error {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		if node.IsDirectory {
			counter.AddDirectory(ctx, node.Path)
		} else {
			counter.AddFile(ctx, node.Path, node.Size)
		}

		return nil
	})
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	ServerInfo string        `json:"serverInfo,omitempty"`
	Latency    time.Duration `json:"latency,omitempty"`
}

// Test checks whether a command can be run with the profile. Connection failures
// are reported in the result, and only a cancellation is returned as error.
func (a *Adapter) Test(ctx context.Context, profile *Profile) (*TestResult, error) {
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return &TestResult{Message: err.Error()}, nil
	}

	start := time.Now()

	output, err := a.run(ctx, profile, connectionTestCommand)
	if errors.Is(err, ErrCancelled) {
		return nil, err
	}

	if err != nil {
		return &TestResult{Message: fmt.Sprintf("Connection failed: %v", err)}, nil
	}

	if output.ExitStatus != 0 {
		return &TestResult{
			Message: fmt.Sprintf("Connection failed: %v", strings.TrimSpace(string(output.Stderr))),
		}, nil
	}

	result := TestResult{
		Success: true,
		Message: "Connection successful",
		Latency: time.Since(start),
	}

	if lines := strings.Split(strings.TrimSpace(string(output.Stdout)), "\n"); len(lines) > 1 {
		result.ServerInfo = strings.TrimSpace(lines[1])
	}

	return &result, nil
}
