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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prompt_enhancer/generator"
	"prompt_enhancer/metrics"
	"prompt_enhancer/server"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr       string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web enhancer",
		Long: `Start the web enhancer.

Serves the single-page UI on /, the session API on /api/sessions,
Prometheus metrics on /metrics and a liveness probe on /healthz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, addr, sessionTTL)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server_addr)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", server.DefaultSessionTTL, "Drop browser sessions idle for this long")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, addr string, sessionTTL time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	logger, closeLog, err := openLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	exporter := metrics.New()
	agent, err := newAgent(cfg, logger, generator.WithRecorder(exporter))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, agent,
		server.WithMetrics(exporter),
		server.WithLogger(logger),
		server.WithSessionTTL(sessionTTL),
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting web enhancer",
			slog.String("addr", cfg.ServerAddr),
			slog.String("provider", cfg.LLM.Provider),
			slog.String("model", cfg.LLM.Model),
			slog.String("version", version),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.Janitor(gctx, janitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	srv.Close()
	logger.Info("server stopped")
	return err
}
