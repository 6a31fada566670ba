// Package executor defines the contract shared by every execution backend:
// a request in, exactly one result (or one terminal error) out.
package executor

import (
	"context"
	"time"
)

// TimeoutExitCode is reported when a run is killed for exceeding its deadline.
// It matches the exit status of the coreutils timeout command.
const TimeoutExitCode = 124

// ExecutionRequest is one (source, language) pair submitted for execution.
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// ExecutionResult represents the output and status of the code execution.
//
// A non-empty CompileError means the compile step failed and nothing was run;
// Stdout, Stderr and ExitCode are then zero. A runtime failure is a normal
// result with a non-zero ExitCode.
type ExecutionResult struct {
	Language     string        `json:"language"`
	Stdout       string        `json:"stdout"`
	Stderr       string        `json:"stderr"`
	ExitCode     int           `json:"exitCode"`
	CompileError string        `json:"compileError,omitempty"`
	TimedOut     bool          `json:"timedOut,omitempty"`
	Truncated    bool          `json:"truncated,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// CompileFailed reports whether the request stopped at the compile step.
func (r *ExecutionResult) CompileFailed() bool {
	return r.CompileError != ""
}

// Executor represents the core interface for running code.
//
// Implementations return apperror.ErrUnsupportedLanguage for unknown tags and
// apperror.ErrToolchainUnavailable when a process cannot be started.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
