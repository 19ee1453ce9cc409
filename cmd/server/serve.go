package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/api"
	"github.com/Harshitk-cp/dreamlog/internal/cache"
	"github.com/Harshitk-cp/dreamlog/internal/config"
	"github.com/Harshitk-cp/dreamlog/internal/events"
	"github.com/Harshitk-cp/dreamlog/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server, the pattern refresher and, when NATS_URL is set, the analysis event subscriber.`,
	RunE:  runServe,
}

var addr string

func init() {
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides SERVER_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pool, err := openPool(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var rdb *redis.Client
	if url := config.RedisURL(); url != "" {
		rdb, err = cache.NewRedisClient(ctx, url)
		if err != nil {
			logger.Warn("stats cache disabled", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			logger.Info("connected to redis")
		}
	}

	app := api.NewApp(pool, rdb, logger)

	// Start background services
	app.Refresher.Start()

	var subscriber *events.AnalysisSubscriber
	if url := config.NATSURL(); url != "" {
		nc, err := events.Connect(url, logger)
		if err != nil {
			logger.Warn("analysis events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			subscriber = events.NewAnalysisSubscriber(nc, config.NATSSubject(), app.Services.Patterns, logger)
			subscriber.SetMetrics(metrics.New())
			if err := subscriber.Start(); err != nil {
				logger.Warn("analysis subscriber failed to start", zap.Error(err))
				subscriber = nil
			}
		}
	}

	if addr == "" {
		addr = config.ServerAddr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
	}
	logger.Info("shutting down server")

	// Stop background services. Stop returns only once in-flight events are
	// handled, so no Trigger races the Wait below.
	if subscriber != nil {
		subscriber.Stop()
	}
	app.Refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Let detached pattern runs finish before the pool closes.
	app.Services.Patterns.Wait()

	logger.Info("server stopped")
	return nil
}
