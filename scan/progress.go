package scan

import (
	"context"
	"sync"
	"time"
)

const (
	defaultProgressEntries  = 100
	defaultProgressInterval = 100 * time.Millisecond
)

// Progress is a snapshot of a running scan.
type Progress struct {
	FilesScanned       int64     `json:"filesScanned"`
	DirectoriesScanned int64     `json:"directoriesScanned"`
	BytesScanned       int64     `json:"bytesScanned"`
	CurrentPath        string    `json:"currentPath"`
	StartTime          time.Time `json:"startTime"`
	IsComplete         bool      `json:"isComplete"`
}

// ProgressFunc receives progress snapshots.
type ProgressFunc func(Progress)

// Counter accumulates scan statistics and emits throttled progress snapshots: at
// least every `entries` processed entries or every `interval`, whichever comes first.
//
// Snapshots are emitted while holding the lock, so they are delivered serially and
// in non-decreasing order even when several routines share the counter.
type Counter struct {
	mu       sync.Mutex
	progress Progress

	entries    int
	interval   time.Duration
	sinceEmit  int
	lastEmit   time.Time
	onProgress ProgressFunc
}

// NewCounter creates a Counter. Non-positive entries or interval fall back to the
// defaults of 100 entries and 100ms.
func NewCounter(onProgress ProgressFunc, entries int, interval time.Duration) *Counter {
	if entries <= 0 {
		entries = defaultProgressEntries
	}
	if interval <= 0 {
		interval = defaultProgressInterval
	}

	now := time.Now()

	return &Counter{
		progress:   Progress{StartTime: now},
		entries:    entries,
		interval:   interval,
		lastEmit:   now,
		onProgress: onProgress,
	}
}

// AddFile accounts a processed file.
func (c *Counter) AddFile(ctx context.Context, path string, size int64) {
	c.add(ctx, path, 1, 0, size)
}

// AddDirectory accounts a processed directory.
func (c *Counter) AddDirectory(ctx context.Context, path string) {
	c.add(ctx, path, 0, 1, 0)
}

func (c *Counter) add(ctx context.Context, path string, files, dirs, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.progress.FilesScanned += files
	c.progress.DirectoriesScanned += dirs
	c.progress.BytesScanned += bytes
	c.progress.CurrentPath = path
	c.sinceEmit++

	if c.sinceEmit < c.entries && time.Since(c.lastEmit) < c.interval {
		return
	}

	c.sinceEmit = 0
	c.lastEmit = time.Now()

	if c.onProgress != nil && ctx.Err() == nil {
		c.onProgress(c.progress)
	}
}

// Announce emits a snapshot with the specified current path immediately, regardless
// of throttling. It is used to report phases of operations without entry counts.
func (c *Counter) Announce(ctx context.Context, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.progress.CurrentPath = message
	c.sinceEmit = 0
	c.lastEmit = time.Now()

	if c.onProgress != nil && ctx.Err() == nil {
		c.onProgress(c.progress)
	}
}

// Snapshot returns the current progress, marked as complete if required.
func (c *Counter) Snapshot(complete bool) Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	progress := c.progress
	progress.IsComplete = complete

	return progress
}
