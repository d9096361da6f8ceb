// Copyright (c) 2025 Arc Engineering
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mtreilly/arc-bridge/internal/api"
	"github.com/mtreilly/arc-bridge/internal/bridge"
	"github.com/mtreilly/arc-bridge/internal/config"
)

func newServeCmd(cfg *config.Config, svc *bridge.Service, logger *zap.Logger) *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge",
		Long: `Start the local JSON API.

Endpoints:
  GET  /ping     health check
  POST /items    create an item
  POST /item     get, update or delete an item ({"action": ...})
  POST /search   condition search
  GET  /metrics  Prometheus metrics (when enabled)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := api.NewServer(svc, api.ServerOptions{
				Addr:              fmt.Sprintf("%s:%d", bind, port),
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
				ShutdownTimeout:   cfg.Server.ShutdownTimeout,
				Logger:            logger,
				EnableMetrics:     cfg.Metrics.Enabled,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(); err != nil {
				return fmt.Errorf("listen on %s: %w", srv.Addr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "arc-bridge listening on http://%s\n", srv.Addr())
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			<-ctx.Done()
			logger.Info("shutting down")
			if err := srv.Stop(context.Background()); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", cfg.Server.Port, "Port to serve on")
	cmd.Flags().StringVarP(&bind, "bind", "b", cfg.Server.Bind, "Address to bind to")

	return cmd
}
