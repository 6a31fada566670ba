package model

import "time"

// RunStatus is the lifecycle state of a recorded execution.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunFailed means the executor returned an error (unsupported language,
	// missing toolchain). A program that exits non-zero is still completed.
	RunFailed RunStatus = "failed"
)

// Run is the stored record of one execution request and its outcome.
//
// The outcome fields are zero until Status is completed or failed. Report is
// the rendered text shown to users; the other fields keep the structured data.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	Language     string     `json:"language" yaml:"language"`
	Code         string     `json:"code" yaml:"code"`
	Status       RunStatus  `json:"status" yaml:"status"`
	Stdout       string     `json:"stdout" yaml:"stdout"`
	Stderr       string     `json:"stderr" yaml:"stderr"`
	ExitCode     int        `json:"exitCode" yaml:"exitCode"`
	CompileError string     `json:"compileError,omitempty" yaml:"compileError,omitempty"`
	TimedOut     bool       `json:"timedOut,omitempty" yaml:"timedOut,omitempty"`
	Truncated    bool       `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
	Report       string     `json:"report" yaml:"report"`
	DurationMS   int64      `json:"durationMs" yaml:"durationMs"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// Finished reports whether the run has reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}
