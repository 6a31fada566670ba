package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/codesphere/internal/config"
	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/executor/docker"
	"github.com/sakif/codesphere/internal/executor/local"
	"github.com/sakif/codesphere/internal/language"
	"github.com/sakif/codesphere/internal/logging"
	"github.com/sakif/codesphere/internal/repository/sqlite"
	"github.com/sakif/codesphere/internal/service"
)

// app is the wiring shared by the commands. Build it with newApp and
// release it with close.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	toolchains *language.Registry
	db         *sqlite.DB

	exec      executor.Executor
	closeExec func() error
}

// appOptions select which parts newApp builds.
type appOptions struct {
	// executor builds the configured backend.
	executor bool
	// timeout overrides executor.timeout when non-zero.
	timeout time.Duration
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger, nil
}

func newApp(opts appOptions) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	toolchains, err := language.NewRegistry(cfg.Toolchains)
	if err != nil {
		return nil, fmt.Errorf("config: toolchains: %w", err)
	}

	db, err := openDB(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		toolchains: toolchains,
		db:         db,
		closeExec:  func() error { return nil },
	}

	if opts.executor {
		if err := a.buildExecutor(opts.timeout); err != nil {
			db.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildExecutor(timeout time.Duration) error {
	if timeout == 0 {
		timeout = a.cfg.Executor.Timeout
	}
	maxOutput, err := a.cfg.MaxOutputBytes()
	if err != nil {
		return err
	}

	switch a.cfg.Executor.Backend {
	case config.BackendDocker:
		memory, err := a.cfg.DockerMemoryBytes()
		if err != nil {
			return err
		}
		dcfg := docker.DefaultConfig()
		for lang, image := range a.cfg.DockerImages() {
			dcfg.Images[lang] = image
		}
		if memory > 0 {
			dcfg.MemoryLimit = memory
		}
		if a.cfg.Docker.CPULimit > 0 {
			dcfg.CPULimit = a.cfg.Docker.CPULimit
		}
		if a.cfg.Docker.PoolSize > 0 {
			dcfg.PoolSize = a.cfg.Docker.PoolSize
		}
		dcfg.Timeout = timeout
		dcfg.MaxOutput = maxOutput

		exec, err := docker.New(a.toolchains, dcfg, a.logger)
		if err != nil {
			return fmt.Errorf("starting docker executor: %w", err)
		}
		a.exec = exec
		a.closeExec = exec.Close

	default:
		a.exec = local.New(a.toolchains, local.Config{
			WorkRoot:  a.cfg.Executor.WorkRoot,
			Timeout:   timeout,
			MaxOutput: maxOutput,
		}, a.logger)
	}

	a.logger.Debug("executor ready",
		slog.String("backend", a.cfg.Executor.Backend),
		slog.Duration("timeout", timeout),
		slog.Int("max_output", maxOutput),
	)
	return nil
}

// executionService returns a service over the app's executor and history.
// The caller must Close it.
func (a *app) executionService() *service.ExecutionService {
	return service.NewExecutionService(a.exec, a.db, a.logger)
}

func (a *app) close() {
	if err := a.closeExec(); err != nil {
		a.logger.Warn("failed to stop executor", slog.String("error", err.Error()))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", slog.String("error", err.Error()))
	}
}

func openDB(path string) (*sqlite.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	return sqlite.New(path)
}
