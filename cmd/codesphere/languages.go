package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/config"
	"github.com/sakif/codesphere/internal/language"
)

var languagesOutputFlag string

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "List supported languages and their toolchains",
	RunE:    runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	languagesCmd.Flags().StringVarP(&languagesOutputFlag, "output", "o", outputText, "Output format: text, json or yaml")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	if err := validateOutput(languagesOutputFlag); err != nil {
		return err
	}
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	toolchains, err := language.NewRegistry(cfg.Toolchains)
	if err != nil {
		return fmt.Errorf("config: toolchains: %w", err)
	}

	out := cmd.OutOrStdout()
	if languagesOutputFlag != outputText {
		return writeStructured(out, languagesOutputFlag, toolchains.All())
	}
	printLanguages(out, toolchains.All())
	return nil
}

func printLanguages(w io.Writer, toolchains []language.Toolchain) {
	fmt.Fprintf(w, "%-12s %-12s %-28s %s\n", "LANGUAGE", "NAME", "COMPILE", "RUN")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, tc := range toolchains {
		compile := "-"
		if tc.Compiled() {
			compile = strings.Join(tc.Compile, " ")
		}
		fmt.Fprintf(w, "%-12s %-12s %-28s %s\n",
			tc.Language, tc.DisplayName, compile, strings.Join(tc.Run, " "))
	}
}
