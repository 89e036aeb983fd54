package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nursingportal/internal/config"
	"nursingportal/internal/logging"
	"nursingportal/internal/metrics"
	"nursingportal/internal/queue"
	"nursingportal/internal/relay"
	"nursingportal/internal/store"
)

// Worker consumes queued relay jobs and delivers them to the relay webhooks.
func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Env, cfg.LogLevel).Named("worker")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		logger.Fatal("the worker needs QUEUE_BACKEND=redis; memory queues are drained inside the api process")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consuming anyway", zap.String("addr", cfg.RedisAddr))
	}

	client := relay.New(cfg.RelayIndividualURL, cfg.RelayBulkURL, cfg.RelayGroupChatID, cfg.RelaySkip)
	if !cfg.RelaySkip {
		if err := client.Health(ctx); err != nil {
			logger.Warn("relay webhook not available yet", zap.Error(err))
		} else {
			logger.Info("relay webhook connected")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	go serveMetrics(cfg.WorkerMetricsPort, logger)
	dispatcher := relay.NewDispatcher(client, m, logger)
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	logger.Info("worker started, waiting for relay jobs")
	if err := relay.Work(ctx, q, dispatcher, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}

func serveMetrics(port string, logger *zap.Logger) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
