package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shortcircuit/internal/api"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local route API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Banner(version.Current)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(cfg)

		// Load reference data in background
		go func() {
			nav, err := loadNavigator(cfg)
			if err != nil {
				logger.Error("SDE", fmt.Sprintf("Load failed: %v", err))
				return
			}
			srv.SetNavigator(nav)
			logger.Section("Reference data")
			logger.Stats("Systems", len(nav.Data().Systems))
			logger.Stats("Gates", len(nav.Data().Gates))
			logger.Stats("Wormhole types", len(nav.Data().WormholeSizes))
			logger.Success("SDE", "Navigator ready")
			api.AutoRefresh(ctx, nav, cfg.RefreshInterval())
		}()

		httpServer := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Server(cfg.Listen)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("Server", "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}
