package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"signage-monitor/internal/config"
	httpapi "signage-monitor/internal/http"
	"signage-monitor/internal/ingest"
	"signage-monitor/internal/logger"
	"signage-monitor/internal/query"
	"signage-monitor/internal/repository"
	"signage-monitor/internal/service"
	"signage-monitor/internal/store"
	"signage-monitor/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, "signage-monitor")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting signage-monitor",
		zap.String("store_backend", cfg.Store.Backend),
		zap.Int("warning_threshold_minutes", cfg.Thresholds.WarningMinutes),
		zap.Int("error_threshold_minutes", cfg.Thresholds.ErrorMinutes),
	)

	var deviceStore repository.DeviceStore
	var clientsRepo repository.ClientsRepository = repository.NewStaticClientsRepo(cfg.Clients.Names)

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := repository.NewPostgresDB(&cfg.Database)
		if err != nil {
			zapLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		deviceStore = repository.NewPostgresDeviceStore(db, zapLogger)
		if cfg.Clients.FromDB {
			clientsRepo = repository.NewPostgresClientsRepo(db)
		}
	default:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		kv := store.NewRedisKV(redisClient)
		deviceStore = repository.NewRedisDeviceStore(kv, cfg.CacheTTL(), cfg.LastFetchTTL(), zapLogger)
	}

	feedClient := upstream.NewClient(cfg.Upstream.StatusURL, cfg.Upstream.DetailsURL, cfg.UpstreamTimeout(), zapLogger)
	normalizer := ingest.NewDeviceNormalizer(cfg.WarningThreshold(), cfg.ErrorThreshold(), zapLogger)
	pipeline := ingest.NewPipeline(feedClient, deviceStore, normalizer, zapLogger)
	scheduler := ingest.NewScheduler(pipeline, clientsRepo, cfg.StatusInterval(), cfg.DetailsInterval(), zapLogger)

	querySvc := query.NewService(deviceStore, cfg.Page.DefaultSize, zapLogger)
	handler := httpapi.NewDeviceHandler(querySvc, pipeline, clientsRepo, zapLogger)
	router := httpapi.NewRouter(zapLogger)
	router.RegisterDeviceRoutes(handler)

	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		zapLogger.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
