// Package report renders execution outcomes as the plain-text block shown to
// users. The format is presentation only; structured callers should use
// executor.ExecutionResult directly.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/executor"
)

// NotSupported is the fixed report for an unknown language tag.
const NotSupported = "Language not supported"

// Render formats a result:
//
//	<stdout>
//	Errors: <stderr>            (only when stderr is non-empty)
//	Process finished with exit code N
//
// A compile failure renders the compiler output only; there is no exit code
// line because nothing was run.
func Render(res *executor.ExecutionResult) string {
	if res.CompileFailed() {
		return "Compilation failed: " + res.CompileError
	}

	var b strings.Builder
	b.WriteString(res.Stdout)
	if res.Stderr != "" {
		b.WriteString("\nErrors: ")
		b.WriteString(res.Stderr)
	}
	if res.Truncated {
		b.WriteString("\n(output truncated)")
	}
	fmt.Fprintf(&b, "\nProcess finished with exit code %d", res.ExitCode)
	return b.String()
}

// Failure formats an error returned by an executor.
func Failure(err error) string {
	if errors.Is(err, apperror.ErrUnsupportedLanguage) {
		return NotSupported
	}
	return "Error: " + err.Error()
}

// Of renders whichever of res or err is set.
func Of(res *executor.ExecutionResult, err error) string {
	if err != nil {
		return Failure(err)
	}
	return Render(res)
}

// Failed reports whether the outcome should be flagged as an error to the
// user: an executor error, a compile failure or a non-zero exit code.
func Failed(res *executor.ExecutionResult, err error) bool {
	return err != nil || res.CompileFailed() || res.ExitCode != 0
}
