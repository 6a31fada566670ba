package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/repository"
)

// Hand-written mocks: in-memory implementations of the repository and
// executor interfaces so the service logic is tested without SQLite or
// child processes.

type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int
	lastOpts repository.ListOptions
}

func newMockRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	m.lastOpts = opts
	result := make([]model.Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		if opts.Language != "" && s.Language != opts.Language {
			continue
		}
		result = append(result, *s)
	}
	if opts.Offset >= len(result) {
		return []model.Snippet{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if _, ok := m.snippets[snippet.ID]; !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

// mockRunRepo is safe for concurrent use: background runs update it from
// their own goroutines.
type mockRunRepo struct {
	mu      sync.Mutex
	runs    map[string]model.Run
	updates chan model.Run
	failAll error
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{
		runs:    make(map[string]model.Run),
		updates: make(chan model.Run, 16),
	}
}

func (m *mockRunRepo) CreateRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *mockRunRepo) UpdateRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if _, ok := m.runs[run.ID]; !ok {
		return apperror.NotFound("run", run.ID)
	}
	m.runs[run.ID] = *run
	select {
	case m.updates <- *run:
	default:
	}
	return nil
}

func (m *mockRunRepo) GetRun(_ context.Context, id string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, apperror.NotFound("run", id)
	}
	return &run, nil
}

func (m *mockRunRepo) ListRuns(_ context.Context, opts repository.ListOptions) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if opts.Language != "" && r.Language != opts.Language {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// stubExecutor returns a canned outcome. If release is non-nil, Execute
// blocks until it is closed.
type stubExecutor struct {
	mu      sync.Mutex
	calls   []executor.ExecutionRequest
	result  *executor.ExecutionResult
	err     error
	release chan struct{}
}

func (s *stubExecutor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	return &res, nil
}

func (s *stubExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
