package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the code_run tool over MCP stdio",
	Long: `Serve the code_run and list_languages tools to an MCP client on stdin and
stdout. Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{executor: true})
	if err != nil {
		return err
	}
	defer a.close()

	svc := a.executionService()
	defer svc.Close()

	return mcptool.ServeStdio(mcptool.New(svc, a.toolchains, version))
}
