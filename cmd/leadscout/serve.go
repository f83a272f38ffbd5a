package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/leadscout/transport"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept crawl requests over a websocket and stream results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := transport.Options{
			Runner:        rt.orchestrator,
			OutputDir:     cfg.Output.Dir,
			Metrics:       rt.metrics,
			MetricsPath:   cfg.Server.MetricsPath,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}
		if cfg.NATS.URL != "" {
			nc, err := transport.Connect(cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Drain()
			opts.NATS = nc
			slog.Info("mirroring events to nats", slog.String("prefix", cfg.NATS.SubjectPrefix))
		}

		server := transport.NewServer(opts)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Listen(cfg.Server.Addr)
		})
		g.Go(func() error {
			<-gctx.Done()
			slog.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
