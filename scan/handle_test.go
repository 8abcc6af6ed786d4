package scan_test

import (
	"context"
	"testing"
	"time"

	"github.com/dux-project/dux/scan"
	"github.com/dux-project/dux/tree"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshots int
	err       error
}

func (s *fakeSource) Scan(ctx context.Context, onProgress scan.ProgressFunc) (*scan.Result, error) {
	for i := 1; i <= s.snapshots; i++ {
		if ctx.Err() != nil {
			return nil, scan.ErrCancelled
		}
		onProgress(scan.Progress{FilesScanned: int64(i)})
	}

	if s.err != nil {
		return nil, s.err
	}

	root := tree.New("/fake", true, false, 0, nil)
	return &scan.Result{Root: root, Progress: scan.Progress{FilesScanned: int64(s.snapshots), IsComplete: true}}, nil
}

func TestHandleCoalescesProgress(t *testing.T) {
	var (
		seen     []int64
		complete bool
	)

	handle := scan.Start(context.Background(), &fakeSource{snapshots: 1000}, scan.Callbacks{
		OnProgress: func(p scan.Progress) {
			assert.False(t, complete, "progress after completion")
			seen = append(seen, p.FilesScanned)
			time.Sleep(time.Millisecond)
		},
		OnComplete: func(r *scan.Result) {
			complete = true
			assert.True(t, r.Progress.IsComplete)
		},
	})

	require.Equal(t, scan.StateCompleted, handle.Wait())
	assert.True(t, complete)
	require.NotEmpty(t, seen)
	assert.LessOrEqual(t, len(seen), 1000)

	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
	assert.Equal(t, int64(1000), seen[len(seen)-1])
}

func TestHandleFailure(t *testing.T) {
	var reported error

	handle := scan.Start(context.Background(), &fakeSource{err: errors.New("boom")}, scan.Callbacks{
		OnComplete: func(*scan.Result) { assert.Fail(t, "unexpected completion") },
		OnError:    func(err error) { reported = err },
	})

	assert.Equal(t, scan.StateFailed, handle.Wait())
	assert.EqualError(t, reported, "boom")
}

func TestHandleWrappedCancellation(t *testing.T) {
	err := errors.WithMessage(scan.ErrCancelled, "failed to scan dir")

	handle := scan.Start(context.Background(), &fakeSource{err: err}, scan.Callbacks{
		OnError: func(error) { assert.Fail(t, "cancellation reported as failure") },
	})

	assert.Equal(t, scan.StateCancelled, handle.Wait())
}

func TestHandleParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handle := scan.Start(ctx, &fakeSource{snapshots: 10}, scan.Callbacks{})

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scan not terminated")
	}

	assert.Equal(t, scan.StateCancelled, handle.State())
}
