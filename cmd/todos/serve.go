package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cirocosta/todos/internal/api"
	"github.com/cirocosta/todos/internal/config"
	"github.com/cirocosta/todos/internal/live"
	"github.com/cirocosta/todos/internal/logging"
	"github.com/cirocosta/todos/internal/repository"
	"github.com/cirocosta/todos/internal/service"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr   string
	token  string
	driver string
	path   string
}

func newServeCmd(a *app) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the HTTP server",
		Aliases: []string{"run"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			flags := cmd.Flags()
			overrideString(flags, "addr", &cfg.Server.Addr, f.addr)
			overrideString(flags, "token", &cfg.Server.Token, f.token)
			overrideString(flags, "storage", &cfg.Storage.Driver, f.driver)
			overrideString(flags, "db", &cfg.Storage.Path, f.path)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewServerLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
			}

			return serve(cmd.Context(), &cfg, ln)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP server address (overrides server.addr)")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token required on /todos routes (overrides server.token)")
	cmd.Flags().StringVar(&f.driver, "storage", "", "storage driver: memory or sqlite (overrides storage.driver)")
	cmd.Flags().StringVar(&f.path, "db", "", "sqlite database file (overrides storage.path)")

	return cmd
}

// serve runs the API on ln until ctx is done, then shuts down gracefully.
// Live subscriptions are hijacked connections that Shutdown doesn't wait
// for, so their request contexts are canceled first.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	repo, closeRepo, err := openRepository(cfg.Storage)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			slog.Error("close storage", "error", err)
		}
	}()

	hub := live.NewHub(repo.FindAll)
	todoService := service.NewTodoService(repo, service.WithNotifier(hub))

	var opts []api.Option
	if cfg.Server.Token != "" {
		opts = append(opts, api.WithToken(cfg.Server.Token))
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Handler:           api.NewRouter(todoService, hub, opts...),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()

	slog.Info("starting server",
		"addr", ln.Addr().String(),
		"storage", cfg.Storage.Driver,
		"auth", cfg.Server.Token != "",
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	cancelBase()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func openRepository(cfg config.Storage) (repository.TodoRepository, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return repository.NewInMemoryTodoRepository(), func() error { return nil }, nil
	case config.DriverSQLite:
		repo, err := repository.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
