package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statementlens/internal/api"
	"github.com/insightdelivered/statementlens/internal/store"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var (
		host    string
		port    int
		dataDir string
		dsn     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Storage.DataDir = dataDir
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.DatabaseURL = dsn
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rt)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "interface to bind (overrides SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides SERVER_PORT)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "job file directory (overrides DATA_DIR)")
	cmd.Flags().StringVar(&dsn, "db", "", "job store DSN (overrides DATABASE_URL)")

	return cmd
}

func runServe(ctx context.Context, rt *runtime) error {
	cfg := rt.cfg
	slog.Info("starting server", "config", cfg.String())

	st, err := store.Open(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening job store: %w", err)
	}
	defer st.Close()

	svc, catalog, parsers, err := newService(cfg, st, cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	srv := api.NewServer(svc, catalog, parsers, api.Options{
		BodyLimit:   cfg.Server.BodyLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     api.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr(), "formats", catalog.Len())
		errCh <- srv.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}
