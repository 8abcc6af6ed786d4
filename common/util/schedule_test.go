package util

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestScheduleNow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		defer close(done)
		ScheduleNow(ctx, func() error {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("ignored")
		}, time.Millisecond, "Failed to run action")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("schedule not stopped")
	}

	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}
