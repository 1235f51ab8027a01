// Package server exposes a [contents.Manager] through the REST api notebook
// clients use for their contents.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/gorilla/mux"
	"github.com/unrolled/secure"
	"golang.org/x/sync/errgroup"
)

const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second

	contentsPrefix = "/api/contents"
)

type contentsProvider interface {
	RootDir() string
	SharedDir() string
	Usage(ctx context.Context) (filesystem.DiskStats, error)
	FileExists(ctx context.Context, apiPath string) bool
	DirExists(ctx context.Context, apiPath string) bool
	Get(ctx context.Context, apiPath string, opts contents.GetOptions) (*contents.Model, error)
	Save(ctx context.Context, in *contents.Input, apiPath string) (*contents.Model, error)
	New(ctx context.Context, in *contents.Input, apiPath string) (*contents.Model, error)
	NewUntitled(ctx context.Context, dir, typ, ext string) (*contents.Model, error)
	Copy(ctx context.Context, fromPath, toPath string) (*contents.Model, error)
	Update(ctx context.Context, in *contents.Input, apiPath string) (*contents.Model, error)
	Delete(ctx context.Context, apiPath string) error
	CreateCheckpoint(ctx context.Context, apiPath string) (*checkpoints.Checkpoint, error)
	ListCheckpoints(ctx context.Context, apiPath string) ([]*checkpoints.Checkpoint, error)
	RestoreCheckpoint(ctx context.Context, id, apiPath string) error
	DeleteCheckpoint(ctx context.Context, id, apiPath string) error
}

type Options struct {
	Listen        string
	BackendName   string
	IsDevelopment bool
}

type Server struct {
	contentsHandler contentsProvider
	opts            Options
	handler         http.Handler
}

func New(contentsHandler contentsProvider, opts Options) *Server {
	s := &Server{
		contentsHandler: contentsHandler,
		opts:            opts,
	}

	r := mux.NewRouter()
	s.routes(r)

	sm := secure.New(secure.Options{
		IsDevelopment:      opts.IsDevelopment,
		BrowserXssFilter:   true,
		ContentTypeNosniff: true,
		FrameDeny:          true,
	})

	s.handler = sm.Handler(MakeLogMiddleware(r))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("(server) failed to listen: %w", err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Serving contents api", "addr", ln.Addr().String())

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("(server) %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		slog.Info("Shutting down contents api")

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("(server) failed to shut down: %w", err)
		}

		return nil
	})

	return g.Wait()
}
