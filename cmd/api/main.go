package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"nursingportal/internal/announcement"
	"nursingportal/internal/api"
	"nursingportal/internal/attendance"
	"nursingportal/internal/auth"
	"nursingportal/internal/cloudinary"
	"nursingportal/internal/config"
	"nursingportal/internal/document"
	"nursingportal/internal/logging"
	"nursingportal/internal/metrics"
	"nursingportal/internal/objectstore"
	"nursingportal/internal/queue"
	"nursingportal/internal/relay"
	"nursingportal/internal/resource"
	"nursingportal/internal/roster"
	"nursingportal/internal/stats"
	"nursingportal/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	m := metrics.New(prometheus.DefaultRegisterer)
	objects := objectStore(cfg, logger)

	rosterSvc := roster.NewService(roster.NewRepository(db.Client), logger.Named("roster"))
	attendanceSvc := attendance.NewService(attendance.NewRepository(db.Client), logger.Named("attendance"))
	documentSvc := document.NewService(document.NewRepository(db.Client), objects, cfg.MaxDocumentBytes, logger.Named("documents"))
	resourceSvc := resource.NewService(resource.NewRepository(db.Client), objects, cfg.MaxResourceBytes, logger.Named("resources"))

	relayer, err := newRelayer(ctx, cfg, redisClient, m, logger)
	if err != nil {
		return err
	}
	announcementSvc := announcement.NewService(announcement.NewRepository(db.Client), relayer, logger.Named("announcements"))

	h := api.New(api.Deps{
		Roster:        rosterSvc,
		Attendance:    attendanceSvc,
		Documents:     documentSvc,
		Resources:     resourceSvc,
		Announcements: announcementSvc,
		Stats:         stats.NewRefresher(rosterSvc, documentSvc, attendanceSvc, logger.Named("stats")),
		Auth: auth.Config{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
			SessionTTL: cfg.SessionTTL,
		},
		DevLogin: cfg.DevLogin,
		Metrics:  m,
		Checks: map[string]func(context.Context) bool{
			"db":    db.Healthy,
			"redis": redisClient.Healthy,
		},
		Log: logger.Named("http"),
	})
	router := api.NewRouter(h, api.RouterConfig{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Gatherer:        prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// objectStore picks Cloudinary when configured. Outside production an
// in-memory store stands in; in production uploads fail as not configured.
func objectStore(cfg config.App, logger *zap.Logger) objectstore.Store {
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if cdn.Configured() {
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
		return cdn
	}
	if !cfg.Production() {
		logger.Warn("cloudinary not configured, using in-memory object store")
		return objectstore.NewMemory("memory://")
	}
	logger.Warn("cloudinary not configured, file uploads are disabled")
	return cdn
}

// newRelayer delivers directly in "direct" mode or publishes to the job queue
// in "queue" mode. A memory queue is drained in-process since no worker can reach it.
func newRelayer(ctx context.Context, cfg config.App, redisClient *store.Redis, m *metrics.Metrics, logger *zap.Logger) (announcement.Relayer, error) {
	client := relay.New(cfg.RelayIndividualURL, cfg.RelayBulkURL, cfg.RelayGroupChatID, cfg.RelaySkip)
	dispatcher := relay.NewDispatcher(client, m, logger.Named("relay"))

	switch cfg.RelayMode {
	case "direct", "":
		if cfg.RelaySkip {
			logger.Info("relay skip mode enabled, announcements are not forwarded")
		}
		return dispatcher, nil
	case "queue":
		if cfg.QueueBackend == "memory" {
			q := queue.NewInMemory(64)
			go func() {
				if err := relay.Work(ctx, q, dispatcher, logger.Named("relay-worker")); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("in-process relay worker stopped", zap.Error(err))
				}
			}()
			return relay.NewQueued(q, m), nil
		}
		return relay.NewQueued(queue.NewRedisQueue(redisClient.Client, queue.DefaultKey), m), nil
	default:
		return nil, errors.New("RELAY_MODE must be direct or queue")
	}
}
