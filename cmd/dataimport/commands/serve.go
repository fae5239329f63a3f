package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataimport/internal/schema"
	"github.com/JonMunkholm/dataimport/internal/store"
	"github.com/JonMunkholm/dataimport/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP server",
	Long: `Start the HTTP server that validates and imports uploaded files.

The server provides:
- an upload page per definition with an HTML error report
- a JSON API under /api (definitions, preview, validate, import, runs)
- prometheus metrics on /metrics and a health check on /healthz

With a database configured a background job purges old log records.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := env.cfg

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("definitions registered",
			"count", schema.Count(),
			"groups", len(schema.Groups()),
			"database", env.service.HasDatabase(),
		)

		if env.pool != nil {
			go store.StartRetention(ctx, store.NewLogStore(env.pool), store.RetentionConfig{
				MaxAge:        cfg.Retention.MaxAge,
				CheckInterval: cfg.Retention.CheckInterval,
			})
		}

		server := web.NewServer(env.service, cfg, env.metrics)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
			return err
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	AddCommand(serveCmd)
}
