// Command coordinator serves the token ring of a Torua cluster. Storage
// nodes register their tokens with it; clients ask it where keys live, how
// the ring is cut into ranges, and route reads, writes and full scans
// through it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/torua/internal/config"
	"github.com/dreamware/torua/internal/coordinator"
	"github.com/dreamware/torua/internal/scan"
)

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p, err := cfg.Ring.ResolvePartitioner()
	if err != nil {
		return err
	}
	interval, err := cfg.Health.IntervalDuration()
	if err != nil {
		return err
	}
	timeout, err := cfg.Health.TimeoutDuration()
	if err != nil {
		return err
	}

	tokens := coordinator.NewTokenMap(p, cfg.Ring.ReplicationFactor)
	health := coordinator.NewHealthMonitor(coordinator.HealthOptions{
		Logger:      logger,
		Interval:    interval,
		Timeout:     timeout,
		MaxFailures: cfg.Health.MaxFailures,
	})
	health.OnDown(func(hostID string) {
		logger.Warn("replica lists will prefer other hosts", "host", hostID)
	})
	scanner := scan.New(scan.Options{
		Logger:         logger,
		SplitsPerRange: cfg.Scan.SplitsPerRange,
		Concurrency:    cfg.Scan.Concurrency,
	})
	srv := newServer(tokens, health, scanner, logger)

	go health.Start(ctx, tokens.Hosts)
	defer health.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("coordinator listening",
			"addr", cfg.Server.Addr,
			"partitioner", p.Name(),
			"replication_factor", tokens.ReplicationFactor())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("coordinator stopped")
	return nil
}

func main() {
	configPath := flag.String("config", os.Getenv("TORUA_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		slog.Error("logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("coordinator failed", "err", err)
		os.Exit(1)
	}
}
