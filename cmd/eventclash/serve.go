package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/galois26/eventclash/internal/server"
)

var serveConfig string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conflict detection HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := buildApp(ctx, serveConfig)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.cfg, a.engine, a.post, a.sources)
		logger := slog.Default().With("module", "main")
		logger.Info("eventclash starting",
			"version", Version,
			"listen", a.cfg.Server.ListenAddress,
			"sources", len(a.sources),
			"engine", a.engine.Config().String(),
		)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Serve() }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", "timeout", a.cfg.Server.ShutdownTimeout)
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig, "config", "/config.yml", "path to YAML config")
	rootCmd.AddCommand(serveCmd)
}
