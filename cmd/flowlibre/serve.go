package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dasmlab/flowlibre/pkg/config"
	"github.com/dasmlab/flowlibre/pkg/plugin"
	"github.com/dasmlab/flowlibre/pkg/query"
	"github.com/dasmlab/flowlibre/pkg/server"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		debounce    time.Duration
		metricsAddr string
		grpcAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as a launcher plugin speaking JSON-RPC over stdio",
		Long: `Run as a launcher plugin.

Requests are read from stdin and responses written to stdout, one JSON-RPC 2.0
message per line. Logs go to stderr. The host must send "initialize" before
any "query".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				cfg.Debounce = debounce
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("grpc-health-addr") {
				cfg.GRPCHealthAddr = grpcAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", query.DefaultDebounce, "Delay before sending a translation request")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address for the HTTP /metrics and /health endpoints (empty disables)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-health-addr", "", "Address for the gRPC health service (empty disables)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger()

	logger.WithFields(logrus.Fields{
		"base_url":       cfg.BaseURL,
		"debounce":       cfg.Debounce.String(),
		"action_keyword": cfg.ActionKeyword,
		"metrics_addr":   cfg.MetricsAddr,
		"grpc_addr":      cfg.GRPCHealthAddr,
		"log_level":      cfg.LogLevel,
	}).Info("Starting flowlibre plugin")

	translator, err := translate.NewTranslator(translate.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create translator: %w", err)
	}

	p := plugin.New(translator, nil, plugin.Config{Config: query.Config{
		Debounce:      cfg.Debounce,
		ActionKeyword: cfg.ActionKeyword,
		IconPath:      cfg.IconPath,
		Logger:        logger,
	}})

	rpc := server.NewRPCServer(p, os.Stdin, os.Stdout, logger)
	p.SetHost(rpc)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpServer *server.HTTPServer
	if cfg.MetricsAddr != "" {
		httpServer = server.NewHTTPServer(cfg.MetricsAddr, p.Ready(), logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.WithError(err).Error("HTTP server failed")
			}
		}()
	}

	var healthServer *server.HealthServer
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.GRPCHealthAddr, err)
		}
		healthServer = server.NewHealthServer(logger)
		go healthServer.WatchReady(ctx, p.Ready())
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				logger.WithError(err).Error("gRPC health server failed")
			}
		}()
	}

	serveErr := rpc.Serve(ctx)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("HTTP server shutdown failed")
		}
	}
	if healthServer != nil {
		healthServer.Stop(shutdownCtx)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	logger.Info("flowlibre plugin stopped")
	return nil
}
