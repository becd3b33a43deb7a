// Command tasks is a terminal single-list task tracker.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"todo-tracker/app"
	"todo-tracker/config"
	"todo-tracker/logging"
	"todo-tracker/seed"
	"todo-tracker/store"
	"todo-tracker/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("tasks started", "config", *cfgPath, "backend", cfg.Storage.Backend)

	kv, closeKV, err := openKV(cfg.Storage)
	if err != nil {
		logger.Error("storage open failed", "error", err)
		return fmt.Errorf("storage open failed: %w", err)
	}
	defer func() {
		if err := closeKV.Close(); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	repo := store.NewTaskRepository(kv, cfg.Storage.Key)
	svc := app.NewService(repo, app.WithLogger(logger.Logger))
	svc.Load()

	if from := repo.RecoveredFrom(); from != "" {
		logger.Warn("corrupt task list restored", "from", from)
	}

	var fetcher app.SeedFetcher
	if f := seed.New(cfg.Seed.Source, cfg.Seed.Timeout); f != nil {
		fetcher = f
	}

	p := tea.NewProgram(
		tui.NewModel(svc, fetcher, cfg.Seed.Timeout),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("tasks exited normally")
	return nil
}

func openKV(cfg config.StorageConfig) (store.KV, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		kv, err := store.OpenSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv, nil
	case config.BackendMemory:
		return store.NewMemoryKV(), nopCloser{}, nil
	default:
		kv, err := store.OpenFileKV(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
