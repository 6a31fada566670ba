package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/report"
)

var (
	runLangFlag    string
	runTimeoutFlag time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a program and print its report",
	Long: `Run a source file, or standard input when no file is given, and print the
report. The language is taken from --lang or the file extension.

The command exits with the program's exit code, or 1 when it could not be run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runLangFlag, "lang", "l", "", "Language (java, python, javascript, cpp)")
	runCmd.Flags().DurationVarP(&runTimeoutFlag, "timeout", "t", 0, "Time limit for compile plus run (default: executor.timeout)")
}

func runRun(cmd *cobra.Command, args []string) error {
	code, lang, err := readSource(cmd.InOrStdin(), args, runLangFlag)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{executor: true, timeout: runTimeoutFlag})
	if err != nil {
		return err
	}
	defer a.close()

	svc := a.executionService()
	defer svc.Close()

	res, err := svc.Execute(cmd.Context(), code, lang)
	fmt.Fprintln(cmd.OutOrStdout(), report.Of(res, err))

	if status := exitCode(res, err); status != 0 {
		return &exitError{code: status}
	}
	return nil
}

// readSource returns the program text and its language tag.
func readSource(stdin io.Reader, args []string, lang string) (string, string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		if lang == "" {
			return "", "", errors.New("--lang is required when reading from stdin")
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
		if lang == "" {
			lang = languageFromPath(args[0])
		}
		if lang == "" {
			return "", "", fmt.Errorf("cannot tell the language of %s; use --lang", args[0])
		}
	}
	if err != nil {
		return "", "", fmt.Errorf("reading source: %w", err)
	}
	return string(data), lang, nil
}

// languageFromPath maps a file extension to a language tag, or "".
func languageFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return string(language.Java)
	case ".py":
		return string(language.Python)
	case ".js", ".mjs", ".cjs":
		return string(language.JavaScript)
	case ".cpp", ".cc", ".cxx", ".c++":
		return string(language.Cpp)
	}
	return ""
}

// exitCode is the status the CLI exits with for an outcome.
func exitCode(res *executor.ExecutionResult, err error) int {
	switch {
	case err != nil:
		return 1
	case res.CompileFailed():
		return 1
	default:
		return res.ExitCode
	}
}
