// Package docker runs user programs inside throwaway containers, one image
// per language. It is an alternative to the local executor for hosts that
// should not have the toolchains installed.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/language"
)

var _ executor.Executor = (*Executor)(nil)

const timeoutMessage = "\nExecution timed out.\n"

// Executor implements the executor.Executor interface using Docker.
type Executor struct {
	cli        *client.Client
	config     Config
	toolchains *language.Registry
	logger     *slog.Logger
	pools      map[language.Language]*Pool
}

// New creates a new Docker Executor, pulls every configured image and starts
// one container pool per language.
func New(toolchains *language.Registry, cfg Config, logger *slog.Logger) (*Executor, error) {
	if toolchains == nil {
		toolchains = language.Default()
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = 1 << 20
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for lang, img := range cfg.Images {
		logger.Info("ensuring docker image is available",
			slog.String("language", string(lang)),
			slog.String("image", img),
		)
		reader, err := cli.ImagePull(ctx, img, image.PullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("failed to pull image %s: %w", img, err)
		}
		// Read everything to block until the pull is complete
		_, _ = io.Copy(io.Discard, reader)
		reader.Close()
	}
	logger.Info("docker images are ready")

	exec := &Executor{
		cli:        cli,
		config:     cfg,
		toolchains: toolchains,
		logger:     logger.With(slog.String("component", "docker-executor")),
		pools:      make(map[language.Language]*Pool, len(cfg.Images)),
	}
	for lang, img := range cfg.Images {
		pool := NewPool(cli, lang, img, cfg, logger)
		pool.Start()
		exec.pools[lang] = pool
	}

	return exec, nil
}

// Close shuts down every pool and the docker client.
func (e *Executor) Close() error {
	for _, p := range e.pools {
		p.Stop()
	}
	return e.cli.Close()
}

// Execute compiles (if needed) and runs the code in a pre-warmed container
// that is removed afterwards, so no two requests ever share a filesystem.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	start := time.Now()

	tc, ok := e.toolchains.Lookup(req.Language)
	if !ok {
		return nil, apperror.UnsupportedLanguage(req.Language)
	}
	pool, ok := e.pools[tc.Language]
	if !ok {
		return nil, apperror.ToolchainUnavailable(string(tc.Language), errors.New("no docker image configured"))
	}

	containerID, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring container: %w", err)
	}
	defer pool.Discard(containerID)

	executeCtx := ctx
	if e.config.Timeout > 0 {
		var executeCancel context.CancelFunc
		executeCtx, executeCancel = context.WithTimeout(ctx, e.config.Timeout)
		defer executeCancel()
	}

	src := tc.Prepare(req.Code)
	paths := language.Paths{
		Dir:    workDir,
		Source: path.Join(workDir, src.FileName),
		Binary: path.Join(workDir, "main"),
		Class:  src.Class,
	}
	if err := e.writeFile(executeCtx, containerID, paths.Source, src.Code); err != nil {
		return nil, err
	}

	result := &executor.ExecutionResult{Language: string(tc.Language)}

	if tc.Compiled() {
		out, err := e.exec(ctx, executeCtx, containerID, language.Expand(tc.Compile, paths))
		if err != nil {
			return nil, err
		}
		if out.exitCode != 0 {
			msg := out.stderr
			if strings.TrimSpace(msg) == "" {
				msg = out.stdout
			}
			result.CompileError = msg
			result.TimedOut = out.timedOut
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	out, err := e.exec(ctx, executeCtx, containerID, language.Expand(tc.Run, paths))
	if err != nil {
		return nil, err
	}

	result.Stdout = out.stdout
	result.Stderr = out.stderr
	result.ExitCode = out.exitCode
	result.TimedOut = out.timedOut
	result.Truncated = out.truncated
	result.Duration = time.Since(start)
	return result, nil
}

// writeFile streams content into the container through `cat`, since the
// work dir is a tmpfs mount that the copy API cannot write into.
func (e *Executor) writeFile(ctx context.Context, containerID, dst, content string) error {
	execResp, err := e.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"sh", "-c", `cat > "$0"`, dst},
	})
	if err != nil {
		return fmt.Errorf("failed to create write exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return fmt.Errorf("failed to attach to write exec: %w", err)
	}
	defer attachResp.Close()

	if _, err := io.WriteString(attachResp.Conn, content); err != nil {
		return fmt.Errorf("failed to write source: %w", err)
	}
	if err := attachResp.CloseWrite(); err != nil {
		return fmt.Errorf("failed to close source stream: %w", err)
	}
	_, _ = io.Copy(io.Discard, attachResp.Reader)

	code, err := e.exitCode(ctx, execResp.ID)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("writing source exited with code %d", code)
	}
	return nil
}

type execOutput struct {
	stdout    string
	stderr    string
	exitCode  int
	timedOut  bool
	truncated bool
}

// exec runs argv in the container and demultiplexes its output. executeCtx
// carries the timeout; ctx is the caller's and is used for the final inspect.
func (e *Executor) exec(ctx, executeCtx context.Context, containerID string, argv []string) (*execOutput, error) {
	execResp, err := e.cli.ContainerExecCreate(executeCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workDir,
		Cmd:          argv,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := e.cli.ContainerExecAttach(executeCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	stdout := &executor.LimitWriter{Limit: e.config.MaxOutput}
	stderr := &executor.LimitWriter{Limit: e.config.MaxOutput}

	done := make(chan struct{})
	go func() {
		// Use stdcopy to demultiplex stdout from stderr
		_, _ = stdcopy.StdCopy(stdout, stderr, attachResp.Reader)
		close(done)
	}()

	out := &execOutput{}

	select {
	case <-done:
		code, err := e.exitCode(ctx, execResp.ID)
		if err != nil {
			return nil, err
		}
		out.exitCode = code
	case <-executeCtx.Done():
		// Closing the hijacked connection unblocks StdCopy; the container
		// itself is force-removed by the caller.
		attachResp.Close()
		<-done
		out.collect(stdout, stderr)
		return interrupted(out, executeCtx.Err())
	}

	out.collect(stdout, stderr)
	return out, nil
}

func (o *execOutput) collect(stdout, stderr *executor.LimitWriter) {
	o.stdout = stdout.String()
	o.stderr = stderr.String()
	o.truncated = stdout.Truncated() || stderr.Truncated()
}

// interrupted settles an exec whose context ended first. Only an expired
// deadline is a timeout; a cancelled caller gets an error and no result.
func interrupted(out *execOutput, err error) (*execOutput, error) {
	if !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("docker: execution cancelled: %w", err)
	}
	out.exitCode = executor.TimeoutExitCode
	out.timedOut = true
	out.stderr += timeoutMessage
	return out, nil
}

// exitCode waits briefly for the exec to be marked finished, since the output
// stream can close a moment before the daemon records the exit status.
func (e *Executor) exitCode(ctx context.Context, execID string) (int, error) {
	for i := 0; i < 20; i++ {
		inspect, err := e.cli.ContainerExecInspect(ctx, execID)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect exec: %w", err)
		}
		if !inspect.Running {
			return inspect.ExitCode, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return 0, fmt.Errorf("exec %s still running after its output closed", execID)
}
