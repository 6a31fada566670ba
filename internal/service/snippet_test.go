package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/codesphere/internal/apperror"
)

func newTestService(t *testing.T) (*SnippetService, *mockSnippetRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewSnippetService(repo, quietLogger()), repo
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "hello world", "Python", "print('hi')", "a test")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
	if snippet.Name != "hello world" {
		t.Errorf("Name = %q, want %q", snippet.Name, "hello world")
	}
	if snippet.Language != "python" {
		t.Errorf("Language = %q, want canonical %q", snippet.Language, "python")
	}
	if snippet.Code != "print('hi')" {
		t.Errorf("Code = %q, want %q", snippet.Code, "print('hi')")
	}
}

func TestCreate_TrimsWhitespace(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "  spaced out  ", "js", "code", "  desc  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.Name != "spaced out" {
		t.Errorf("Name = %q, want trimmed %q", snippet.Name, "spaced out")
	}
	if snippet.Description != "desc" {
		t.Errorf("Description = %q, want trimmed %q", snippet.Description, "desc")
	}
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		lang    string
		code    string
		wantErr error
	}{
		{name: "empty name", snippet: "", lang: "python", code: "x", wantErr: apperror.ErrValidation},
		{name: "whitespace name", snippet: "   ", lang: "python", code: "x", wantErr: apperror.ErrValidation},
		{name: "name too long", snippet: strings.Repeat("a", MaxSnippetNameLength+1), lang: "python", code: "x", wantErr: apperror.ErrValidation},
		{name: "code too long", snippet: "big", lang: "python", code: strings.Repeat("x", MaxCodeLength+1), wantErr: apperror.ErrValidation},
		{name: "unknown language", snippet: "ruby", lang: "ruby", code: "puts 1", wantErr: apperror.ErrUnsupportedLanguage},
		{name: "missing language", snippet: "none", lang: "", code: "x", wantErr: apperror.ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)

			_, err := svc.Create(context.Background(), tt.snippet, tt.lang, tt.code, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(repo.snippets) != 0 {
				t.Errorf("invalid snippet was stored")
			}
		})
	}
}

// =========================================================================
// GET BY ID TESTS
// =========================================================================

func TestGetByID_Success(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), "test", "java", "code", "")
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	found, err := svc.GetByID(context.Background(), " "+created.ID+" ")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "test" {
		t.Errorf("Name = %q, want %q", found.Name, "test")
	}
}

func TestGetByID_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetByID(context.Background(), "nonexistent"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("nonexistent: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetByID(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty ID: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_ClampsBadValues(t *testing.T) {
	svc, repo := newTestService(t)

	if _, err := svc.List(context.Background(), -5, -10, ""); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.lastOpts.Limit != DefaultListLimit || repo.lastOpts.Offset != 0 {
		t.Errorf("opts = %+v, want limit %d offset 0", repo.lastOpts, DefaultListLimit)
	}

	if _, err := svc.List(context.Background(), 1000, 0, ""); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.lastOpts.Limit != MaxListLimit {
		t.Errorf("Limit = %d, want %d", repo.lastOpts.Limit, MaxListLimit)
	}
}

func TestList_FiltersByCanonicalLanguage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, lang := range []string{"C++", "cpp", "python"} {
		if _, err := svc.Create(ctx, "s", lang, "code", ""); err != nil {
			t.Fatalf("setup: Create(%s) error = %v", lang, err)
		}
	}

	snippets, err := svc.List(ctx, 0, 0, "c++")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snippets) != 2 {
		t.Errorf("List(c++) returned %d, want 2", len(snippets))
	}

	if _, err := svc.List(ctx, 0, 0, "cobol"); !errors.Is(err, apperror.ErrUnsupportedLanguage) {
		t.Errorf("List(cobol) error = %v, want ErrUnsupportedLanguage", err)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_Success(t *testing.T) {
	svc, _ := newTestService(t)

	created, _ := svc.Create(context.Background(), "original", "python", "old code", "old desc")

	updated, err := svc.Update(context.Background(), created.ID, "new name", "node", "new code", "new desc")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Name != "new name" {
		t.Errorf("Name = %q, want %q", updated.Name, "new name")
	}
	if updated.Language != "javascript" {
		t.Errorf("Language = %q, want %q", updated.Language, "javascript")
	}
	if updated.Code != "new code" {
		t.Errorf("Code = %q, want %q", updated.Code, "new code")
	}
}

func TestUpdate_EmptyFieldsKeepValues(t *testing.T) {
	svc, _ := newTestService(t)

	created, _ := svc.Create(context.Background(), "keep", "java", "old", "")

	updated, err := svc.Update(context.Background(), created.ID, "", "", "new", "")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "keep" {
		t.Errorf("Name = %q, want %q", updated.Name, "keep")
	}
	if updated.Language != "java" {
		t.Errorf("Language = %q, want %q", updated.Language, "java")
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	created, _ := svc.Create(context.Background(), "x", "python", "x", "")

	if _, err := svc.Update(context.Background(), "nonexistent", "name", "", "code", ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("nonexistent: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(context.Background(), created.ID, "", "brainfuck", "code", ""); !errors.Is(err, apperror.ErrUnsupportedLanguage) {
		t.Errorf("bad language: error = %v, want ErrUnsupportedLanguage", err)
	}
	if _, err := svc.Update(context.Background(), "", "", "", "", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty ID: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_Success(t *testing.T) {
	svc, _ := newTestService(t)

	created, _ := svc.Create(context.Background(), "to delete", "python", "code", "")
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := svc.GetByID(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}

func TestDelete_EmptyID(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Delete(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
