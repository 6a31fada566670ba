package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("snippet", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("snippet", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("snippet", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("name", "too long"),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "UnsupportedLanguage wraps ErrUnsupportedLanguage",
			err:       UnsupportedLanguage("cobol"),
			target:    ErrUnsupportedLanguage,
			wantMatch: true,
		},
		{
			name:      "ToolchainUnavailable wraps ErrToolchainUnavailable",
			err:       ToolchainUnavailable("javac", errors.New("executable file not found in $PATH")),
			target:    ErrToolchainUnavailable,
			wantMatch: true,
		},
		{
			name:      "ToolchainUnavailable does NOT match ErrUnsupportedLanguage",
			err:       ToolchainUnavailable("node", errors.New("boom")),
			target:    ErrUnsupportedLanguage,
			wantMatch: false,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("missing token"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("snippet", "abc123"),
			wantMessage: "snippet not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("snippet", "abc123"),
			wantMessage: "snippet conflict with id abc123",
		},
		{
			name:        "UnsupportedLanguage quotes the tag",
			err:         UnsupportedLanguage("cobol"),
			wantMessage: `language "cobol" is not supported`,
		},
		{
			name:        "ToolchainUnavailable names the binary and cause",
			err:         ToolchainUnavailable("g++", errors.New("not found")),
			wantMessage: "cannot start g++: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("snippet", "abc123")
	unwrapped := err.Unwrap()

	if unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestUnsupportedLanguageField(t *testing.T) {
	err := UnsupportedLanguage("brainfuck")

	if err.Field != "language" {
		t.Errorf("Field = %q, want %q", err.Field, "language")
	}
}

func TestErrorsIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading run: %w", NotFound("run", "r1"))

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is(%v, ErrNotFound) = false, want true", err)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As did not find the AppError")
	}
	if appErr.Message != "run not found with id r1" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestToolchainUnavailableKeepsCauseText(t *testing.T) {
	err := ToolchainUnavailable("javac", errors.New(`exec: "javac": executable file not found in $PATH`))

	if errors.Is(err, ErrUnsupportedLanguage) {
		t.Error("a missing toolchain must not read as an unsupported language")
	}
	if err.Field != "" {
		t.Errorf("Field = %q, want empty", err.Field)
	}
}
