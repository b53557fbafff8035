package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"RisingStock/internal/metrics"
	"RisingStock/internal/pipeline"
	"RisingStock/internal/server"
	"RisingStock/internal/symbol"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		app, cleanup, err := buildApp(m)
		if err != nil {
			return err
		}
		defer cleanup()

		return serveUntilDone(ctx, app, m)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

// serveUntilDone runs the API server until ctx is cancelled.
func serveUntilDone(ctx context.Context, app *pipeline.App, m *metrics.Recorder) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv := server.New(app, m, symbol.SplitCodes(cfg.Schedule.Watchlist), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
