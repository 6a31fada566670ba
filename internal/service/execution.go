package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/report"
	"github.com/sakif/codesphere/internal/repository"
)

// ExecutionService runs programs and keeps their history.
//
// THREE WAYS TO RUN:
//
//	Execute / Report   blocks until the program finishes (HTTP execute, CLI run, MCP)
//	Submit             returns a queued run at once; poll it with Get (HTTP runs)
//	Start              returns the task; the caller selects on task.Done (WebSocket, REPL)
//
// RUN LIFECYCLE:
//
//	queued → running → completed | failed
//
// A run is "completed" whenever the program ran, whatever its exit code.
// "failed" means the executor returned an error: unknown language, missing
// toolchain, or cancellation.
//
// runs may be nil, in which case nothing is recorded and Submit is
// unavailable. History writes are best effort: a failed insert is logged and
// the execution still happens.
type ExecutionService struct {
	exec   executor.Executor
	runs   repository.RunRepository
	logger *slog.Logger

	// bg outlives the request that submitted an async run.
	bg     context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// NewExecutionService creates an ExecutionService. Call Close to stop
// background runs.
func NewExecutionService(exec executor.Executor, runs repository.RunRepository, logger *slog.Logger) *ExecutionService {
	bg, cancel := context.WithCancel(context.Background())
	return &ExecutionService{
		exec:   exec,
		runs:   runs,
		logger: logger,
		bg:     bg,
		cancel: cancel,
	}
}

// Execute runs code synchronously. Source text of any length is accepted,
// including an empty program.
//
// The returned error is a terminal executor error (unsupported language,
// toolchain unavailable, cancellation). Compile and runtime failures are
// part of the result.
func (s *ExecutionService) Execute(ctx context.Context, code, lang string) (*executor.ExecutionResult, error) {
	req := newRequest(code, lang)

	run := s.record(ctx, req, model.RunRunning)
	res, err := s.exec.Execute(ctx, req)
	s.logOutcome(req, res, err)
	if run != nil {
		s.finish(context.WithoutCancel(ctx), run, res, err)
	}
	return res, err
}

// Report runs code and renders the outcome as display text. It never
// returns an error: every failure is folded into the text.
func (s *ExecutionService) Report(ctx context.Context, code, lang string) string {
	return report.Of(s.Execute(ctx, code, lang))
}

// Submit records a queued run and executes it in the background. The
// returned run carries the ID to poll with Get.
//
// The execution is bound to the service lifetime, not to ctx, so an HTTP
// caller can return immediately.
func (s *ExecutionService) Submit(ctx context.Context, code, lang string) (*model.Run, error) {
	if s.runs == nil {
		return nil, errors.New("service: run history is not configured")
	}
	req := newRequest(code, lang)

	taskCtx, cancel := context.WithCancel(s.bg)
	task := executor.Submit(taskCtx, s.exec, req)
	run := newRun(task.ID(), req, model.RunQueued)
	if err := s.runs.CreateRun(ctx, run); err != nil {
		cancel()
		return nil, fmt.Errorf("recording run: %w", err)
	}

	queued := *run
	s.track(task, run, cancel)
	return &queued, nil
}

// Start returns the running task. The caller consumes the result from its
// own loop via task.Done. Cancelling ctx stops the execution.
func (s *ExecutionService) Start(ctx context.Context, code, lang string) *executor.Task {
	req := newRequest(code, lang)

	task := executor.Submit(ctx, s.exec, req)
	if s.runs != nil {
		run := newRun(task.ID(), req, model.RunRunning)
		if err := s.runs.CreateRun(ctx, run); err != nil {
			s.logger.Warn("failed to record run",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
		} else {
			s.track(task, run, func() {})
		}
	}
	return task
}

// track stores the outcome of task once it completes. done runs after the
// record is written.
func (s *ExecutionService) track(task *executor.Task, run *model.Run, done func()) {
	// Records are written even after Close cancels the execution.
	store := context.WithoutCancel(s.bg)
	s.wg.Go(func() {
		defer done()
		if run.Status == model.RunQueued {
			// The executor does not report start separately, so the run
			// counts as running once its worker exists.
			run.Status = model.RunRunning
			if err := s.runs.UpdateRun(store, run); err != nil {
				s.logger.Warn("failed to mark run as running",
					slog.String("run_id", run.ID),
					slog.String("error", err.Error()),
				)
			}
		}

		<-task.Done()
		res, err := task.Result()
		s.logOutcome(task.Request(), res, err)
		s.finish(store, run, res, err)
	})
}

// Get returns a recorded run.
func (s *ExecutionService) Get(ctx context.Context, id string) (*model.Run, error) {
	if s.runs == nil {
		return nil, apperror.NotFound("run", id)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "run ID is required")
	}
	return s.runs.GetRun(ctx, id)
}

// History lists recorded runs newest first.
func (s *ExecutionService) History(ctx context.Context, limit, offset int, lang string) ([]model.Run, error) {
	if s.runs == nil {
		return []model.Run{}, nil
	}
	opts := repository.ListOptions{Limit: clampLimit(limit), Offset: max(offset, 0)}
	if strings.TrimSpace(lang) != "" {
		canonical, err := parseLanguage(lang)
		if err != nil {
			return nil, err
		}
		opts.Language = string(canonical)
	}

	runs, err := s.runs.ListRuns(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list runs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Close cancels background runs and waits for their records to be written.
func (s *ExecutionService) Close() {
	s.cancel()
	s.wg.Wait()
}

// newRequest canonicalises the language tag. The source is passed through
// untouched: empty programs are valid and size limits belong to the
// transport that received the code.
func newRequest(code, lang string) executor.ExecutionRequest {
	// Unknown tags pass through: the executor owns that error so the
	// report shows "Language not supported" for every entry point.
	if canonical, ok := language.Parse(lang); ok {
		lang = string(canonical)
	}
	return executor.ExecutionRequest{Code: code, Language: lang}
}

func newRun(id string, req executor.ExecutionRequest, status model.RunStatus) *model.Run {
	return &model.Run{
		ID:        id,
		Language:  req.Language,
		Code:      req.Code,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// record inserts a run for a synchronous execution. It returns nil when
// history is disabled or the insert failed.
func (s *ExecutionService) record(ctx context.Context, req executor.ExecutionRequest, status model.RunStatus) *model.Run {
	if s.runs == nil {
		return nil
	}
	run := newRun(uuid.NewString(), req, status)
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("failed to record run",
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return run
}

// finish copies the outcome into run and stores it.
func (s *ExecutionService) finish(ctx context.Context, run *model.Run, res *executor.ExecutionResult, err error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Report = report.Of(res, err)

	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunCompleted
		run.Stdout = res.Stdout
		run.Stderr = res.Stderr
		run.ExitCode = res.ExitCode
		run.CompileError = res.CompileError
		run.TimedOut = res.TimedOut
		run.Truncated = res.Truncated
		run.DurationMS = res.Duration.Milliseconds()
	}

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.logger.Warn("failed to store run outcome",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ExecutionService) logOutcome(req executor.ExecutionRequest, res *executor.ExecutionResult, err error) {
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, apperror.ErrUnsupportedLanguage) {
			level = slog.LevelInfo
		}
		s.logger.Log(context.Background(), level, "execution failed",
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("execution finished",
		slog.String("language", req.Language),
		slog.Int("exit_code", res.ExitCode),
		slog.Bool("compile_failed", res.CompileFailed()),
		slog.Bool("timed_out", res.TimedOut),
		slog.Duration("duration", res.Duration),
	)
}
