package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/service"
)

var (
	historyLimitFlag  int
	historyOffsetFlag int
	historyLangFlag   string
	historyOutputFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Max runs to show")
	historyCmd.Flags().IntVar(&historyOffsetFlag, "offset", 0, "Runs to skip")
	historyCmd.Flags().StringVarP(&historyLangFlag, "lang", "l", "", "Only runs in this language")
	historyCmd.Flags().StringVarP(&historyOutputFlag, "output", "o", outputText, "Output format: text, json or yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := validateOutput(historyOutputFlag); err != nil {
		return err
	}
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	// History reads need no executor.
	svc := service.NewExecutionService(nil, a.db, a.logger)
	defer svc.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		run, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if historyOutputFlag != outputText {
			return writeStructured(out, historyOutputFlag, run)
		}
		printRun(out, run)
		return nil
	}

	runs, err := svc.History(ctx, historyLimitFlag, historyOffsetFlag, historyLangFlag)
	if err != nil {
		return err
	}
	if historyOutputFlag != outputText {
		return writeStructured(out, historyOutputFlag, runs)
	}
	printRuns(out, runs, time.Now())
	return nil
}

func printRuns(w io.Writer, runs []model.Run, now time.Time) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	fmt.Fprintf(w, "%-10s %-12s %-10s %-6s %-16s %s\n", "ID", "LANGUAGE", "STATUS", "EXIT", "STARTED", "CODE")
	fmt.Fprintln(w, strings.Repeat("─", 90))
	for _, r := range runs {
		exit := "-"
		if r.Status == model.RunCompleted && r.CompileError == "" {
			exit = fmt.Sprintf("%d", r.ExitCode)
		}
		fmt.Fprintf(w, "%-10s %-12s %-10s %-6s %-16s %s\n",
			shortID(r.ID), r.Language, r.Status, exit,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"), truncate(r.Code, 30))
	}
}

func printRun(w io.Writer, r *model.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Language: %s\n", r.Language)
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	fmt.Fprintf(w, "Created:  %s\n", r.CreatedAt.Format(time.RFC3339))
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "Duration: %s\n", time.Duration(r.DurationMS)*time.Millisecond)
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintln(w, r.Code)
	if r.Finished() {
		fmt.Fprintln(w, strings.Repeat("─", 60))
		fmt.Fprintln(w, r.Report)
	}
}
