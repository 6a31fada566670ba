package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/report"
	"github.com/sakif/codesphere/internal/service"
)

var replLangFlag string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit and run programs interactively",
	Long: `Type a program line by line and run it with .run. Lines starting with ':'
are commands; type :help to list them.`,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().StringVarP(&replLangFlag, "lang", "l", string(language.Python), "Initial language")
}

const replHelp = `Commands:
  :lang <name>  - Switch language (java, python, javascript, cpp)
  :template     - Load the starter program for the current language
  :show         - Print the buffer
  :clear        - Empty the buffer
  :help         - Show this help
  :quit         - Exit
  .run          - Run the buffer

Ctrl+C while a program runs stops it.`

// replAction is what the loop does after a line.
type replAction int

const (
	replContinue replAction = iota
	replRun
	replQuit
)

// session is the editing state of the REPL, kept apart from the terminal so
// it can be driven by tests.
type session struct {
	toolchains *language.Registry
	lang       language.Language
	buf        []string
	out        io.Writer
}

func newSession(toolchains *language.Registry, lang string, out io.Writer) (*session, error) {
	tc, ok := toolchains.Lookup(lang)
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	return &session{toolchains: toolchains, lang: tc.Language, out: out}, nil
}

func (s *session) prompt() string {
	if len(s.buf) > 0 {
		return "... "
	}
	return fmt.Sprintf("codesphere(%s)> ", s.lang)
}

func (s *session) code() string {
	return strings.Join(s.buf, "\n")
}

// feed handles one input line.
func (s *session) feed(line string) replAction {
	trimmed := strings.TrimSpace(line)
	if trimmed == ".run" {
		if len(s.buf) == 0 {
			fmt.Fprintln(s.out, "Nothing to run; type a program or :template.")
			return replContinue
		}
		return replRun
	}
	if !strings.HasPrefix(trimmed, ":") {
		s.buf = append(s.buf, line)
		return replContinue
	}

	fields := strings.Fields(trimmed)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":exit", ":q":
		return replQuit
	case ":help":
		fmt.Fprintln(s.out, replHelp)
	case ":lang":
		if len(fields) < 2 {
			fmt.Fprintf(s.out, "Current language: %s\n", s.lang)
			break
		}
		tc, ok := s.toolchains.Lookup(fields[1])
		if !ok {
			fmt.Fprintln(s.out, report.NotSupported)
			break
		}
		s.lang = tc.Language
		fmt.Fprintf(s.out, "Language: %s\n", tc.DisplayName)
	case ":template":
		tc, _ := s.toolchains.Lookup(string(s.lang))
		s.buf = strings.Split(tc.Template, "\n")
		fmt.Fprintln(s.out, tc.Template)
	case ":show":
		fmt.Fprintln(s.out, s.code())
	case ":clear":
		s.buf = nil
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (try :help)\n", fields[0])
	}
	return replContinue
}

func runREPL(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{executor: true})
	if err != nil {
		return err
	}
	defer a.close()

	svc := a.executionService()
	defer svc.Close()

	out := cmd.OutOrStdout()
	sess, err := newSession(a.toolchains, replLangFlag, out)
	if err != nil {
		return err
	}

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".codesphere", "repl_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sess.prompt(),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(out, "CodeSphere REPL. Type :help for commands, .run to execute.")

	for {
		rl.SetPrompt(sess.prompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && len(sess.buf) > 0 {
				sess.buf = nil
				continue
			}
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch sess.feed(line) {
		case replQuit:
			return nil
		case replRun:
			runBuffer(cmd.Context(), svc, sess)
		}
	}
}

// runBuffer starts the buffered program and waits for it on this goroutine,
// so the report is printed from the REPL loop rather than the worker.
func runBuffer(ctx context.Context, svc *service.ExecutionService, sess *session) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	task := svc.Start(ctx, sess.code(), string(sess.lang))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	for {
		select {
		case <-task.Done():
			res, err := task.Result()
			fmt.Fprintln(sess.out, report.Of(res, err))
			return
		case <-interrupt:
			fmt.Fprintln(sess.out, "(interrupted)")
			cancel()
		}
	}
}
