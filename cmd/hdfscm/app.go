package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/configuration"
	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
	"github.com/Automattic/hdfscm/internal/server"
	"github.com/Automattic/hdfscm/internal/transfer"
	"github.com/Automattic/hdfscm/internal/ui"
	"github.com/dustin/go-humanize"
)

const uiPollInterval = 10 * time.Millisecond

// App holds the handlers shared by all commands.
type App struct {
	cfg             *configuration.Config
	backend         filesystem.Backend
	fsHandler       *filesystem.Handler
	contentsHandler *contents.Manager
}

func NewApp(ctx context.Context, cfg *configuration.Config) (*App, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("(app) %w", err)
	}

	fsHandler := filesystem.NewHandler(ctx, backend, cfg.VerifyCopies)

	var cp checkpoints.Checkpoints = checkpoints.NoOp{}
	if cfg.Checkpoints == configuration.CheckpointsHDFS {
		resolver := pathing.NewResolver(cfg.RootDir, cfg.SharedDir)
		cp = checkpoints.NewStore(fsHandler, resolver, cfg.RootDir, cfg.CheckpointDir)
	}

	contentsHandler := contents.NewManager(fsHandler, cp, contents.Options{
		RootDir:      cfg.RootDir,
		SharedDir:    cfg.SharedDir,
		AllowHidden:  cfg.AllowHidden,
		HideGlobs:    cfg.HideGlobs,
		MinFreeBytes: cfg.MinFreeBytes,
	})

	return &App{
		cfg:             cfg,
		backend:         backend,
		fsHandler:       fsHandler,
		contentsHandler: contentsHandler,
	}, nil
}

func newBackend(cfg *configuration.Config) (filesystem.Backend, error) {
	switch cfg.Backend {
	case configuration.BackendHDFS:
		backend, err := filesystem.NewHDFS(filesystem.HDFSOptions{
			Host: cfg.HDFSHost,
			Port: cfg.HDFSPort,
			User: cfg.HDFSUser,
		})
		if err != nil {
			return nil, err
		}

		return backend, nil

	case configuration.BackendLocal:
		if err := os.MkdirAll(cfg.LocalBaseDir, 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("failed to create local base dir: %w", err)
		}

		slog.Warn("Using the local backend instead of HDFS", "base", cfg.LocalBaseDir)

		return filesystem.NewLocal(cfg.LocalBaseDir, &filesystem.OS{}, &filesystem.Unix{}), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

func (app *App) Close() {
	if err := app.backend.Close(); err != nil {
		slog.Warn("Failed to close backend", "err", err)
	}
}

func (app *App) EnsureRoot(ctx context.Context) error {
	if err := app.contentsHandler.EnsureRootDirectory(ctx); err != nil {
		return fmt.Errorf("(app-root) %w", err)
	}

	return nil
}

func (app *App) Serve(ctx context.Context) error {
	if app.cfg.CreateRootDirOnStartup {
		if err := app.EnsureRoot(ctx); err != nil {
			return err
		}
	}

	slog.Info(app.contentsHandler.InfoString())

	srv := server.New(app.contentsHandler, server.Options{
		Listen:        app.cfg.Listen,
		BackendName:   app.backend.Name(),
		IsDevelopment: app.cfg.JupyterEnv == configuration.JupyterEnvDev,
	})

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("(app-serve) %w", err)
	}

	return nil
}

type transferOptions struct {
	transfer.Options

	LocalDir string
	APIDir   string
	UI       bool
}

func (app *App) Transfer(ctx context.Context, dir transfer.Direction, opts transferOptions) (*transfer.Summary, error) {
	localDir, err := filepath.Abs(opts.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("(app-transfer) %w", err)
	}

	if dir == transfer.Pull {
		if err := os.MkdirAll(localDir, 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("(app-transfer) %w", err)
		}
	} else if fi, err := os.Stat(localDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("(app-transfer) %w: %s", ErrNotADirectory, localDir)
	}

	localBackend := filesystem.NewLocal(localDir, &filesystem.OS{}, &filesystem.Unix{})
	localHandler := filesystem.NewHandler(ctx, localBackend, app.cfg.VerifyCopies)

	opts.AllowHidden = app.cfg.AllowHidden
	tr := transfer.NewTransferer(app.contentsHandler, localHandler, opts.Options)

	run := func(ctx context.Context) (*transfer.Summary, error) {
		if dir == transfer.Pull {
			return tr.Pull(ctx, opts.APIDir)
		}

		return tr.Push(ctx, opts.APIDir)
	}

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	var summary *transfer.Summary
	if opts.UI {
		title := fmt.Sprintf("%s %s <-> %s", dir, localDir, path.Join(app.cfg.RootDir, opts.APIDir))
		summary, err = runWithUI(ctx, tr, title, run)
	} else {
		summary, err = run(ctx)
	}
	if err != nil {
		return summary, fmt.Errorf("(app-transfer) %w", err)
	}

	for _, job := range summary.Failed {
		slog.Error("File not transferred",
			"path", job.APIPath,
			"local", job.LocalPath,
			"err", job.Err(),
		)
	}

	slog.Info("Transfer summary",
		"direction", dir.String(),
		"transferred", len(summary.Transferred),
		"skipped", len(summary.Skipped),
		"failed", len(summary.Failed),
		"size", humanize.Bytes(summary.Bytes),
	)

	if len(summary.Failed) > 0 {
		return summary, fmt.Errorf("%w: %d failed", ErrTransferIncomplete, len(summary.Failed))
	}

	return summary, nil
}

// runWithUI runs the transfer behind the terminal view. Logs go into the
// view while it is open. Closing the view early leaves the transfer running.
func runWithUI(ctx context.Context, tr *transfer.Transferer, title string, run func(context.Context) (*transfer.Summary, error)) (*transfer.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uiHandler := ui.NewHandler(ctx, cancel, tr, title)

	prev := logOutput.Set(uiHandler.LogWriter)
	defer logOutput.Set(prev)

	var wg sync.WaitGroup
	var summary *transfer.Summary
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer uiHandler.Quit()

		for !uiHandler.Ready.Load() && !uiHandler.Failed.Load() && ctx.Err() == nil {
			time.Sleep(uiPollInterval)
		}

		summary, runErr = run(ctx)
	}()

	if err := uiHandler.Launch(); err != nil && !errors.Is(err, context.Canceled) {
		logOutput.Set(prev)
		slog.Error("UI failure: falling back to terminal", "err", err)
	}
	logOutput.Set(prev)

	wg.Wait()

	return summary, runErr
}
