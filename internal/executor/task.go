package executor

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is a single execution running in the background.
//
// The worker goroutine only records the outcome and closes Done. Whoever
// consumes the result does so from its own loop (a REPL prompt, a websocket
// writer), so completion handling never runs on the worker.
type Task struct {
	id     string
	req    ExecutionRequest
	done   chan struct{}
	once   sync.Once
	result *ExecutionResult
	err    error
}

// Submit starts req on exec in a new goroutine and returns immediately.
// The execution uses ctx; cancelling it is the only way to stop the run.
func Submit(ctx context.Context, exec Executor, req ExecutionRequest) *Task {
	t := &Task{
		id:   uuid.New().String(),
		req:  req,
		done: make(chan struct{}),
	}
	go t.run(ctx, exec)
	return t
}

func (t *Task) run(ctx context.Context, exec Executor) {
	res, err := exec.Execute(ctx, t.req)
	t.finish(res, err)
}

func (t *Task) finish(res *ExecutionResult, err error) {
	t.once.Do(func() {
		t.result = res
		t.err = err
		close(t.done)
	})
}

// ID is a unique identifier for this task.
func (t *Task) ID() string { return t.id }

// Request returns the request the task was submitted with.
func (t *Task) Request() ExecutionRequest { return t.req }

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the outcome. It must only be called after Done is closed;
// before that it returns nil, nil.
func (t *Task) Result() (*ExecutionResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	default:
		return nil, nil
	}
}

// Wait blocks until the task completes or ctx is done. Giving up on the wait
// does not stop the execution.
func (t *Task) Wait(ctx context.Context) (*ExecutionResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
