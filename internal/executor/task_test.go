package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/codesphere/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingExecutor returns its canned result once release is closed.
type blockingExecutor struct {
	release chan struct{}
	res     *executor.ExecutionResult
	err     error
}

func (b *blockingExecutor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.res, b.err
}

func TestSubmit_DeliversResult(t *testing.T) {
	exec := &blockingExecutor{
		release: make(chan struct{}),
		res:     &executor.ExecutionResult{Stdout: "hi\n", ExitCode: 0},
	}

	task := executor.Submit(context.Background(), exec, executor.ExecutionRequest{Code: "print('hi')", Language: "python"})
	assert.NotEmpty(t, task.ID())
	assert.Equal(t, "python", task.Request().Language)

	select {
	case <-task.Done():
		t.Fatal("task finished before the executor returned")
	default:
	}
	res, err := task.Result()
	assert.Nil(t, res)
	assert.NoError(t, err)

	close(exec.release)

	res, err = task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Stdout)

	res, err = task.Result()
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Stdout)
}

func TestSubmit_DeliversError(t *testing.T) {
	boom := errors.New("boom")
	exec := &blockingExecutor{release: make(chan struct{}), err: boom}
	close(exec.release)

	task := executor.Submit(context.Background(), exec, executor.ExecutionRequest{})
	<-task.Done()

	_, err := task.Result()
	assert.ErrorIs(t, err, boom)
}

func TestTask_WaitGivesUpWithoutStoppingTask(t *testing.T) {
	exec := &blockingExecutor{
		release: make(chan struct{}),
		res:     &executor.ExecutionResult{ExitCode: 3},
	}
	task := executor.Submit(context.Background(), exec, executor.ExecutionRequest{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(exec.release)
	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestSubmit_UniqueIDs(t *testing.T) {
	exec := &blockingExecutor{release: make(chan struct{})}
	close(exec.release)

	a := executor.Submit(context.Background(), exec, executor.ExecutionRequest{})
	b := executor.Submit(context.Background(), exec, executor.ExecutionRequest{})
	assert.NotEqual(t, a.ID(), b.ID())
}
