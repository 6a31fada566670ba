// Command codesphere runs programs in Java, Python, JavaScript and C++ with
// the locally installed toolchains, from the terminal, an HTTP API or an MCP
// client.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "codesphere",
	Short: "CodeSphere - multi-language code runner",
	Long: `CodeSphere compiles and runs Java, Python, JavaScript and C++ programs with
the toolchains installed on this machine and reports their output and exit code.

It is not a sandbox: programs run with your user's permissions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./codesphere.yaml or ~/.codesphere/codesphere.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// exitError carries a process exit code out of a command without printing
// anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
