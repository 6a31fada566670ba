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
	snippetsLimitFlag  int
	snippetsLangFlag   string
	snippetsOutputFlag string
	snippetNameFlag    string
	snippetDescFlag    string
)

var snippetsCmd = &cobra.Command{
	Use:     "snippets",
	Aliases: []string{"snippet"},
	Short:   "Manage saved snippets",
}

var snippetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snippets",
	RunE:  runSnippetsList,
}

var snippetsShowCmd = &cobra.Command{
	Use:   "show <snippet-id>",
	Short: "Print a snippet's code",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnippetsShow,
}

var snippetsSaveCmd = &cobra.Command{
	Use:   "save [file]",
	Short: "Save a file, or standard input, as a snippet",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnippetsSave,
}

var snippetsDeleteCmd = &cobra.Command{
	Use:   "delete <snippet-id>",
	Short: "Delete a snippet",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnippetsDelete,
}

func init() {
	rootCmd.AddCommand(snippetsCmd)
	snippetsCmd.AddCommand(snippetsListCmd, snippetsShowCmd, snippetsSaveCmd, snippetsDeleteCmd)

	snippetsListCmd.Flags().IntVar(&snippetsLimitFlag, "limit", 20, "Max snippets to show")
	snippetsListCmd.Flags().StringVarP(&snippetsLangFlag, "lang", "l", "", "Only snippets in this language")
	snippetsListCmd.Flags().StringVarP(&snippetsOutputFlag, "output", "o", outputText, "Output format: text, json or yaml")

	snippetsSaveCmd.Flags().StringVarP(&snippetsLangFlag, "lang", "l", "", "Language (default: from the file extension)")
	snippetsSaveCmd.Flags().StringVarP(&snippetNameFlag, "name", "n", "", "Snippet name (required)")
	snippetsSaveCmd.Flags().StringVarP(&snippetDescFlag, "description", "d", "", "Short description")
	_ = snippetsSaveCmd.MarkFlagRequired("name")
}

// openSnippets returns the snippet service and a func that releases it.
func openSnippets() (*service.SnippetService, func(), error) {
	a, err := newApp(appOptions{})
	if err != nil {
		return nil, nil, err
	}
	return service.NewSnippetService(a.db, a.logger), a.close, nil
}

func runSnippetsList(cmd *cobra.Command, args []string) error {
	if err := validateOutput(snippetsOutputFlag); err != nil {
		return err
	}
	svc, done, err := openSnippets()
	if err != nil {
		return err
	}
	defer done()

	snippets, err := svc.List(cmd.Context(), snippetsLimitFlag, 0, snippetsLangFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if snippetsOutputFlag != outputText {
		return writeStructured(out, snippetsOutputFlag, snippets)
	}
	printSnippets(out, snippets, time.Now())
	return nil
}

func runSnippetsShow(cmd *cobra.Command, args []string) error {
	svc, done, err := openSnippets()
	if err != nil {
		return err
	}
	defer done()

	snippet, err := svc.GetByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), snippet.Code)
	return nil
}

func runSnippetsSave(cmd *cobra.Command, args []string) error {
	code, lang, err := readSource(cmd.InOrStdin(), args, snippetsLangFlag)
	if err != nil {
		return err
	}

	svc, done, err := openSnippets()
	if err != nil {
		return err
	}
	defer done()

	snippet, err := svc.Create(cmd.Context(), snippetNameFlag, lang, code, snippetDescFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved snippet %s (%s)\n", snippet.ID, snippet.Language)
	return nil
}

func runSnippetsDelete(cmd *cobra.Command, args []string) error {
	svc, done, err := openSnippets()
	if err != nil {
		return err
	}
	defer done()

	if err := svc.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snippet %s\n", args[0])
	return nil
}

func printSnippets(w io.Writer, snippets []model.Snippet, now time.Time) {
	if len(snippets) == 0 {
		fmt.Fprintln(w, "No snippets found.")
		return
	}

	fmt.Fprintf(w, "%-22s %-12s %-30s %s\n", "ID", "LANGUAGE", "NAME", "UPDATED")
	fmt.Fprintln(w, strings.Repeat("─", 80))
	for _, s := range snippets {
		fmt.Fprintf(w, "%-22s %-12s %-30s %s\n",
			s.ID, s.Language, truncate(s.Name, 30), humanize.RelTime(s.UpdatedAt, now, "ago", "from now"))
	}
}
