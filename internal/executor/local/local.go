// Package local runs user programs with the toolchains installed on the host.
//
// Every request gets its own working directory, so concurrent requests never
// see each other's sources or build artifacts. Nothing here is a sandbox: the
// child runs with the server's privileges and full filesystem and network
// access.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sourcegraph/conc"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/language"
)

// waitDelay bounds how long we keep draining after a killed process, in case
// a grandchild still holds the pipes open.
const waitDelay = 2 * time.Second

const timeoutMessage = "\nExecution timed out.\n"

var _ executor.Executor = (*Executor)(nil)

// Executor implements the executor.Executor interface with host processes.
type Executor struct {
	toolchains *language.Registry
	config     Config
	logger     *slog.Logger
}

// New creates a local Executor. A nil registry means language.Default().
func New(toolchains *language.Registry, cfg Config, logger *slog.Logger) *Executor {
	if toolchains == nil {
		toolchains = language.Default()
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	return &Executor{
		toolchains: toolchains,
		config:     cfg,
		logger:     logger.With(slog.String("component", "local-executor")),
	}
}

// Execute writes the source into a fresh working directory, compiles it if
// the language needs it, runs it and removes the directory again.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()

	tc, ok := e.toolchains.Lookup(req.Language)
	if !ok {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(e.config.WorkRoot, "run-"+xid.New().String()+"-")
	if err != nil {
		return nil, fmt.Errorf("local: creating work dir: %w", err)
	}
	defer e.cleanup(dir)

	src := tc.Prepare(req.Code)
	paths := language.Paths{
		Dir:    dir,
		Source: filepath.Join(dir, src.FileName),
		Binary: filepath.Join(dir, "main"),
		Class:  src.Class,
	}
	if err := os.WriteFile(paths.Source, []byte(src.Code), 0o600); err != nil {
		return nil, fmt.Errorf("local: writing source: %w", err)
	}

	result := &executor.ExecutionResult{Language: string(tc.Language)}

	if tc.Compiled() {
		out, err := e.runProcess(ctx, dir, language.Expand(tc.Compile, paths))
		if err != nil {
			return nil, err
		}
		if out.exitCode != 0 || out.timedOut {
			result.CompileError = compileMessage(out)
			result.TimedOut = out.timedOut
			result.Duration = time.Since(start)
			e.logger.Info("compilation failed",
				slog.String("language", result.Language),
				slog.Int("exitCode", out.exitCode),
			)
			return result, nil
		}
	}

	out, err := e.runProcess(ctx, dir, language.Expand(tc.Run, paths))
	if err != nil {
		return nil, err
	}

	result.Stdout = out.stdout
	result.Stderr = out.stderr
	result.ExitCode = out.exitCode
	result.TimedOut = out.timedOut
	result.Truncated = out.truncated
	result.Duration = time.Since(start)

	e.logger.Info("execution finished",
		slog.String("language", result.Language),
		slog.Int("exitCode", result.ExitCode),
		slog.Bool("timedOut", result.TimedOut),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// compileMessage prefers the compiler's stderr; some compilers only write
// diagnostics to stdout.
func compileMessage(out *processOutput) string {
	msg := out.stderr
	if strings.TrimSpace(msg) == "" {
		msg = out.stdout
	}
	if strings.TrimSpace(msg) == "" && !out.timedOut {
		msg = fmt.Sprintf("compiler exited with status %d\n", out.exitCode)
	}
	if out.timedOut {
		msg = strings.TrimSuffix(msg, timeoutMessage) + "\nCompilation timed out.\n"
	}
	return msg
}

type processOutput struct {
	stdout    string
	stderr    string
	exitCode  int
	timedOut  bool
	truncated bool
}

// runProcess starts argv in dir and drains both pipes concurrently while the
// process runs. Waiting for exit before draining would deadlock as soon as
// the child fills a pipe buffer.
func (e *Executor) runProcess(ctx context.Context, dir string, argv []string) (*processOutput, error) {
	if err := ctx.Err(); err != nil {
		return contextDone(&processOutput{}, err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("local: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("local: stderr pipe: %w", err)
	}

	e.logger.Debug("starting process", slog.String("argv", strings.Join(argv, " ")))
	if err := cmd.Start(); err != nil {
		return nil, apperror.ToolchainUnavailable(argv[0], err)
	}

	stdout := &executor.LimitWriter{Limit: e.config.MaxOutput}
	stderr := &executor.LimitWriter{Limit: e.config.MaxOutput}

	var wg conc.WaitGroup
	wg.Go(func() { _, _ = io.Copy(stdout, stdoutPipe) })
	wg.Go(func() { _, _ = io.Copy(stderr, stderrPipe) })

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		// CommandContext kills the process. Give the readers a moment to see
		// EOF, then close the read ends in case something else holds them.
		select {
		case <-drained:
		case <-time.After(waitDelay):
			stdoutPipe.Close()
			stderrPipe.Close()
			<-drained
		}
	}

	waitErr := cmd.Wait()

	out := &processOutput{
		stdout:    stdout.String(),
		stderr:    stderr.String(),
		truncated: stdout.Truncated() || stderr.Truncated(),
	}

	// A process that exited on its own keeps its status even if the
	// context ended while its output was being collected.
	if ctxErr := ctx.Err(); killedByContext(ctxErr, waitErr) {
		return contextDone(out, ctxErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("local: waiting for %s: %w", argv[0], waitErr)
		}
		out.exitCode = exitErr.ExitCode()
	}
	return out, nil
}

// killedByContext reports whether a finished process was stopped by its
// context: the context is done and the process did not exit with a status
// of its own. ExitCode is -1 for a signal-killed process.
func killedByContext(ctxErr, waitErr error) bool {
	if ctxErr == nil || waitErr == nil {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode() == -1
	}
	return true
}

// contextDone turns an expired deadline into a timed-out output. Any other
// context error means the caller gave up, which is reported as an error.
func contextDone(out *processOutput, err error) (*processOutput, error) {
	if !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("local: execution cancelled: %w", err)
	}
	out.timedOut = true
	out.exitCode = executor.TimeoutExitCode
	out.stderr += timeoutMessage
	return out, nil
}

// cleanup removes a working directory. Failure is logged, not returned: the
// result has already been produced.
func (e *Executor) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove work dir",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
	}
}
