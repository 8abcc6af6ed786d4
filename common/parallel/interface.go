package parallel

import "context"

type Result struct {
	Routine int
	Task    int
	Value   interface{}
	err     error
}

// Interface is implemented by jobs that can be split into indexed tasks. Tasks are
// executed concurrently, but collected strictly in task order.
type Interface interface {
	ParallelDo(ctx context.Context, routine, task int) (interface{}, error)
	ParallelCollect(result *Result) error
}
