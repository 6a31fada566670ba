// Package service contains the business logic between handlers and storage.
//
// THE LAYERS:
//
//	Handler (HTTP, WebSocket, CLI, MCP) → Service → Repository / Executor
//
//	main.go builds:  DB → Repository ─┐
//	                 Executor ────────┴→ Service → Handler
//	at runtime:      Handler calls Service calls Repository or Executor
//
// Handlers know about status codes, frames and flags. Services know about
// rules: which fields a snippet needs, what a run record holds, when a
// background run is cancelled. Neither knows SQL or how a child process is
// started.
//
// DEPENDENCY INJECTION:
// Services take interfaces (repository.SnippetRepository,
// repository.RunRepository, executor.Executor), never *sqlite.DB or
// *local.Executor. Tests pass the in-memory mocks from mocks_test.go; the
// serve command passes SQLite and the configured executor.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/repository"
)

// SNIPPET LIMITS:
// These bound what is stored, not what can run. ExecutionService accepts any
// source; only a saved snippet is held to MaxCodeLength.
const (
	MaxSnippetNameLength = 100
	MaxCodeLength        = 100000 // ~100KB of code
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// SnippetService validates and stores saved programs.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

// NewSnippetService creates a new SnippetService.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new snippet.
//
// The service takes primitives rather than HTTP types so the same rules apply
// to every caller. lang accepts any alias language.Parse understands and is
// stored in canonical form.
func (s *SnippetService) Create(ctx context.Context, name, lang, code, description string) (*model.Snippet, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(name) > MaxSnippetNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	if err := validateCodeLength(code); err != nil {
		return nil, err
	}
	canonical, err := parseLanguage(lang)
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Name:        name,
		Language:    string(canonical),
		Code:        code,
		Description: strings.TrimSpace(description),
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
		slog.String("language", snippet.Language),
	)

	return snippet, nil
}

// GetByID retrieves a snippet by its ID.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	// NotFound is a normal outcome and is not logged.
	return s.repo.GetByID(ctx, id)
}

// List retrieves snippets with pagination, optionally for one language.
// limit is clamped to 1..MaxListLimit and a negative offset becomes 0.
func (s *SnippetService) List(ctx context.Context, limit, offset int, lang string) ([]model.Snippet, error) {
	opts := repository.ListOptions{Limit: clampLimit(limit), Offset: max(offset, 0)}
	if strings.TrimSpace(lang) != "" {
		canonical, err := parseLanguage(lang)
		if err != nil {
			return nil, err
		}
		opts.Language = string(canonical)
	}

	snippets, err := s.repo.List(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	return snippets, nil
}

// Update modifies an existing snippet.
//
// The snippet is fetched first so NotFound comes from the same place as in
// GetByID. Empty name and lang keep the stored values; code and description
// are always replaced.
func (s *SnippetService) Update(ctx context.Context, id, name, lang, code, description string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxSnippetNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
		}
		snippet.Name = name
	}

	if strings.TrimSpace(lang) != "" {
		canonical, err := parseLanguage(lang)
		if err != nil {
			return nil, err
		}
		snippet.Language = string(canonical)
	}

	if err := validateCodeLength(code); err != nil {
		return nil, err
	}
	snippet.Code = code
	snippet.Description = strings.TrimSpace(description)

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("name", snippet.Name),
	)

	return snippet, nil
}

// Delete removes a snippet by its ID.
// Returns apperror.ErrNotFound if the snippet doesn't exist.
func (s *SnippetService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

func validateCodeLength(code string) error {
	if len(code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	return nil
}

// parseLanguage maps a user-supplied tag to its canonical language.
func parseLanguage(tag string) (language.Language, error) {
	lang, ok := language.Parse(tag)
	if !ok {
		return "", apperror.UnsupportedLanguage(tag)
	}
	return lang, nil
}
