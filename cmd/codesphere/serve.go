package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/codesphere/internal/server"
)

var servePortFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API: POST /api/execute, the /api/ws WebSocket channel, run
history under /api/runs and saved snippets under /api/snippets.

Runs are limited by executor.timeout, or server.exec_timeout when that is 0.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePortFlag, "port", "p", 0, "Port to listen on (default: server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	timeout := a.cfg.Executor.Timeout
	if timeout == 0 {
		timeout = a.cfg.Server.ExecTimeout
	}
	if err := a.buildExecutor(timeout); err != nil {
		return err
	}

	port := a.cfg.Server.Port
	if servePortFlag != 0 {
		port = servePortFlag
	}

	srv, err := server.New(server.Config{
		Port:        port,
		TokenSecret: a.cfg.Auth.TokenSecret,
		ExecTimeout: timeout,
	}, a.logger, a.exec, a.db, a.toolchains)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
