package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/model"
)

func helloResult() *executor.ExecutionResult {
	return &executor.ExecutionResult{
		Language: "python",
		Stdout:   "Hello CodeSphere!\n",
		ExitCode: 0,
		Duration: 15 * time.Millisecond,
	}
}

func TestExecute_RecordsCompletedRun(t *testing.T) {
	exec := &stubExecutor{result: helloResult()}
	runs := newMockRunRepo()
	svc := NewExecutionService(exec, runs, quietLogger())
	defer svc.Close()

	res, err := svc.Execute(context.Background(), "print('Hello CodeSphere!')", "Python")
	require.NoError(t, err)
	assert.Equal(t, "Hello CodeSphere!\n", res.Stdout)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "python", exec.calls[0].Language, "language is canonicalised before execution")

	history, err := svc.History(context.Background(), 0, 0, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	run := history[0]
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, "Hello CodeSphere!\n", run.Stdout)
	assert.Equal(t, int64(15), run.DurationMS)
	assert.Equal(t, "Hello CodeSphere!\n\nProcess finished with exit code 0", run.Report)
	assert.NotNil(t, run.FinishedAt)
}

func TestExecute_AcceptsAnySourceLength(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "empty program", code: ""},
		{name: "whitespace only", code: "   \n"},
		{name: "larger than a snippet", code: strings.Repeat("x = 1\n", MaxCodeLength/3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{result: helloResult()}
			svc := NewExecutionService(exec, nil, quietLogger())
			defer svc.Close()

			_, err := svc.Execute(context.Background(), tt.code, "python")
			require.NoError(t, err)

			require.Len(t, exec.calls, 1)
			assert.Equal(t, tt.code, exec.calls[0].Code, "source reaches the executor unchanged")
		})
	}
}

func TestExecute_ExecutorErrorRecordsFailedRun(t *testing.T) {
	exec := &stubExecutor{err: apperror.ToolchainUnavailable("javac", errors.New("executable file not found"))}
	runs := newMockRunRepo()
	svc := NewExecutionService(exec, runs, quietLogger())
	defer svc.Close()

	_, err := svc.Execute(context.Background(), "class A {}", "java")
	require.True(t, errors.Is(err, apperror.ErrToolchainUnavailable))

	history, err := svc.History(context.Background(), 0, 0, "java")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.RunFailed, history[0].Status)
	assert.NotEmpty(t, history[0].Error)
	assert.True(t, strings.HasPrefix(history[0].Report, "Error: "))
}

func TestExecute_HistoryFailureDoesNotBlockExecution(t *testing.T) {
	exec := &stubExecutor{result: helloResult()}
	runs := newMockRunRepo()
	runs.failAll = errors.New("disk full")
	svc := NewExecutionService(exec, runs, quietLogger())
	defer svc.Close()

	res, err := svc.Execute(context.Background(), "print(1)", "python")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name string
		exec *stubExecutor
		code string
		lang string
		want string
	}{
		{
			name: "success",
			exec: &stubExecutor{result: helloResult()},
			code: "print('Hello CodeSphere!')",
			lang: "python",
			want: "Hello CodeSphere!\n\nProcess finished with exit code 0",
		},
		{
			name: "stderr and exit code",
			exec: &stubExecutor{result: &executor.ExecutionResult{Stderr: "boom\n", ExitCode: 2}},
			code: "raise SystemExit(2)",
			lang: "python",
			want: "\nErrors: boom\n\nProcess finished with exit code 2",
		},
		{
			name: "compile failure",
			exec: &stubExecutor{result: &executor.ExecutionResult{CompileError: "main.cpp:1: error\n"}},
			code: "int main( {",
			lang: "cpp",
			want: "Compilation failed: main.cpp:1: error\n",
		},
		{
			name: "unsupported language",
			exec: &stubExecutor{err: apperror.UnsupportedLanguage("ruby")},
			code: "puts 1",
			lang: "ruby",
			want: "Language not supported",
		},
		{
			name: "empty program",
			exec: &stubExecutor{result: &executor.ExecutionResult{ExitCode: 0}},
			code: "",
			lang: "python",
			want: "\nProcess finished with exit code 0",
		},
		{
			name: "large program",
			exec: &stubExecutor{result: helloResult()},
			code: strings.Repeat("# padding\n", 2*MaxCodeLength/10) + "print('Hello CodeSphere!')",
			lang: "python",
			want: "Hello CodeSphere!\n\nProcess finished with exit code 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewExecutionService(tt.exec, nil, quietLogger())
			defer svc.Close()

			assert.Equal(t, tt.want, svc.Report(context.Background(), tt.code, tt.lang))
		})
	}
}

func TestSubmit_RunsInBackground(t *testing.T) {
	exec := &stubExecutor{result: helloResult(), release: make(chan struct{})}
	runs := newMockRunRepo()
	svc := NewExecutionService(exec, runs, quietLogger())
	defer svc.Close()

	queued, err := svc.Submit(context.Background(), "print('Hello CodeSphere!')", "py")
	require.NoError(t, err)
	assert.Equal(t, model.RunQueued, queued.Status)
	assert.NotEmpty(t, queued.ID)

	running := <-runs.updates
	assert.Equal(t, model.RunRunning, running.Status)

	close(exec.release)

	select {
	case done := <-runs.updates:
		assert.Equal(t, model.RunCompleted, done.Status)
		assert.Equal(t, queued.ID, done.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("background run never finished")
	}

	got, err := svc.Get(context.Background(), queued.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, "Hello CodeSphere!\n", got.Stdout)
}

func TestSubmit_CloseCancelsPendingRuns(t *testing.T) {
	exec := &stubExecutor{result: helloResult(), release: make(chan struct{})}
	runs := newMockRunRepo()
	svc := NewExecutionService(exec, runs, quietLogger())

	queued, err := svc.Submit(context.Background(), "while True: pass", "python")
	require.NoError(t, err)

	svc.Close()

	got, err := svc.Get(context.Background(), queued.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, got.Status)
	assert.Contains(t, got.Error, context.Canceled.Error())
}

func TestSubmit_WithoutHistory(t *testing.T) {
	svc := NewExecutionService(&stubExecutor{result: helloResult()}, nil, quietLogger())
	defer svc.Close()

	_, err := svc.Submit(context.Background(), "print(1)", "python")
	assert.Error(t, err)

	_, err = svc.Get(context.Background(), "any")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	history, err := svc.History(context.Background(), 10, 0, "")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGet_EmptyID(t *testing.T) {
	svc := NewExecutionService(&stubExecutor{result: helloResult()}, newMockRunRepo(), quietLogger())
	defer svc.Close()

	_, err := svc.Get(context.Background(), " ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestStart_ReturnsTaskAndRecordsRun(t *testing.T) {
	exec := &stubExecutor{result: helloResult()}
	runs := newMockRunRepo()
	svc := NewExecutionService(exec, runs, quietLogger())

	task := svc.Start(context.Background(), "print('Hello CodeSphere!')", "python3")

	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello CodeSphere!\n", res.Stdout)

	// Close waits for the record to be written.
	svc.Close()
	got, err := runs.GetRun(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, got.Status)
}

func TestStart_EmptyProgram(t *testing.T) {
	exec := &stubExecutor{result: &executor.ExecutionResult{ExitCode: 0}}
	svc := NewExecutionService(exec, nil, quietLogger())
	defer svc.Close()

	task := svc.Start(context.Background(), "", "python")
	res, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, 1, exec.callCount())
}
