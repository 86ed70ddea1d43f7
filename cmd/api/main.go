package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"pixelforge/internal/config"
	"pixelforge/internal/logger"
	"pixelforge/internal/server"
)

const usage = `usage: api [command]

commands:
  serve     run the HTTP API (default)
  seed      create the initial admin account
  migrate   create MongoDB indexes
  cleanup   remove upload files no project references
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, log)
	case "seed":
		err = withServer(ctx, cfg, log, func(s *server.Server) error {
			return s.SeedAdmin(ctx)
		})
	case "migrate":
		// New applies migrations before returning
		err = withServer(ctx, cfg, log, func(*server.Server) error {
			log.Info("migrations applied")
			return nil
		})
	case "cleanup":
		err = withServer(ctx, cfg, log, func(s *server.Server) error {
			removed, err := s.Sweep(ctx)
			if err != nil {
				return err
			}
			log.Info("cleanup finished", slog.Int("removed", removed))
			return nil
		})
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error("command failed", slog.String("command", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

func withServer(ctx context.Context, cfg *config.Config, log *slog.Logger, fn func(*server.Server) error) error {
	s, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	s, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SeedAdmin(ctx); err != nil {
		return err
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	s.StartWorkers(workerCtx)

	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", slog.Any("error", err))
	}
	log.Info("server exiting")
	return nil
}
