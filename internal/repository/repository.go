package repository

import (
	"context"

	"github.com/sakif/codesphere/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
	// Language filters by canonical language name. Empty means all.
	Language string
}

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores execution history. Callers set Run.ID.
type RunRepository interface {
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]model.Run, error)
}
