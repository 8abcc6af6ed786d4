package parallel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type foo struct {
	t      *testing.T
	result []int
}

func (f *foo) ParallelDo(ctx context.Context, routine, task int) (interface{}, error) {
	return task * task, nil
}

func (f *foo) ParallelCollect(result *Result) error {
	assert.Nil(f.t, result.err)
	assert.Equal(f.t, len(f.result), result.Task)
	assert.Equal(f.t, result.Task*result.Task, result.Value.(int))

	f.result = append(f.result, result.Value.(int))

	return nil
}

func TestSerial(t *testing.T) {
	f := foo{t, nil}

	tasks := 100

	err := Serial(context.Background(), &f, tasks, SerialOption{Routines: 4, Window: 16})
	assert.Nil(t, err)
	assert.Equal(t, tasks, len(f.result))

	for i := 0; i < tasks; i++ {
		assert.Equal(t, i*i, f.result[i])
	}
}

func TestSerialNoWindow(t *testing.T) {
	f := foo{t, nil}

	err := Serial(context.Background(), &f, 37, SerialOption{Routines: 3})
	assert.Nil(t, err)
	assert.Equal(t, 37, len(f.result))
}

var errBoom = errors.New("boom")

type failing struct{}

func (failing) ParallelDo(ctx context.Context, routine, task int) (interface{}, error) {
	if task == 5 {
		return nil, errBoom
	}
	return task, nil
}

func (failing) ParallelCollect(result *Result) error {
	return nil
}

func TestSerialError(t *testing.T) {
	err := Serial(context.Background(), failing{}, 20, SerialOption{Routines: 2})
	assert.ErrorIs(t, err, errBoom)
}

func TestNormalize(t *testing.T) {
	opt := SerialOption{Routines: 8, Window: 4}
	opt.Normalize(6)
	assert.Equal(t, 6, opt.Routines)
	assert.Equal(t, 6, opt.Window)

	opt = SerialOption{Routines: 2}
	opt.Normalize(10)
	assert.Equal(t, 2, opt.Routines)
	assert.Equal(t, 0, opt.Window)
}
