// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-organizer/internal/config"
	"github.com/mtreilly/arc-organizer/internal/offline"
	"github.com/mtreilly/arc-organizer/internal/organizer"
)

func newServeCmd(cfg *config.Config, repo *organizer.Repository, log *zap.Logger) *cobra.Command {
	var (
		listen string
		origin string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the offline worker",
		Long: `Run the offline worker as a local HTTP proxy in front of the web app.

The worker precaches the application shell, serves static files cache first
and images, fonts and scripts network first, falls back to the shell for page
loads while offline, and replays queued writes on /__worker/sync.

Examples:
  arc-organizer serve
  arc-organizer serve --listen 127.0.0.1:9000 --origin https://organizer.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				cfg.Offline.Listen = listen
			}
			if origin != "" {
				cfg.Offline.Origin = origin
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := newWorker(ctx, cfg, repo, log)
			if err != nil {
				return fmt.Errorf("worker: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			defer w.Stop()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:        cfg.Offline.Listen,
				Handler:     offline.NewRouter(w, log),
				ReadTimeout: 15 * time.Second,
				IdleTimeout: 60 * time.Second,
				// no WriteTimeout: /__worker/events streams until the client or
				// the signal context goes away
				BaseContext: func(net.Listener) context.Context { return ctx },
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("offline worker listening",
					zap.String("addr", srv.Addr),
					zap.String("origin", cfg.Offline.Origin),
					zap.String("state", string(w.State())),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()
			fmt.Printf("Offline worker on http://%s (origin %s)\n", srv.Addr, cfg.Offline.Origin)

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&origin, "origin", "", "Origin of the web app (default from config)")
	return cmd
}
