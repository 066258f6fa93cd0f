package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"biblepace/internal/servicetoken"
	"biblepace/internal/util"
	"biblepace/pkg/assetcache"
	"biblepace/pkg/queue"
	"biblepace/pkg/store"
	"biblepace/services/worker/internal/app"
	"biblepace/services/worker/internal/config"
	"biblepace/services/worker/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(util.LogOptions{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	loc, err := config.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("failed to load timezone: %v", err)
	}
	installTimeout, err := config.ParseInstallTimeout(cfg.InstallTimeout)
	if err != nil {
		log.Fatalf("failed to parse install timeout: %v", err)
	}
	origin, err := url.Parse(cfg.OriginURL)
	if err != nil {
		log.Fatalf("failed to parse origin URL: %v", err)
	}

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
	}

	cacheStore, err := newCacheStore(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to init cache store: %v", err)
	}
	reminders, err := newReminderStore(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to init reminder store: %v", err)
	}
	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatalf("failed to init notifier: %v", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	appCore, err := app.New(app.Config{
		Lifecycle: app.LifecycleConfig{
			Store:          cacheStore,
			Version:        cfg.CacheVersion,
			Manifest:       cfg.Precache,
			Origin:         origin,
			DiscoverAssets: cfg.DiscoverAssets,
			Concurrency:    cfg.PrecacheConcurrency,
			Timeout:        installTimeout,
		},
		Reminders:  reminders,
		Notifier:   notifier,
		Clock:      app.NewSystemClock(loc),
		RootURL:    cfg.RootURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := appCore.Start(ctx); err != nil {
		logger.Error("failed to restore reminder", "err", err)
	}

	if redisClient != nil {
		commands, err := queue.NewRedisCommandQueue(queue.Config{
			Client: redisClient,
			Stream: cfg.QueueStream,
			Group:  cfg.QueueGroup,
		})
		if err != nil {
			log.Fatalf("failed to init command queue: %v", err)
		}
		commands.Start(ctx, func(ctx context.Context, d queue.Delivery) error {
			err := appCore.HandleMessage(ctx, d.Command)
			if errors.Is(err, app.ErrInvalidTime) || errors.Is(err, app.ErrUnknownCommand) {
				slog.Warn("dropping invalid command", "id", d.ID, "type", d.Command.Type, "err", err)
				return nil
			}
			return err
		})
		slog.Info("consuming reminder commands", "stream", cfg.QueueStream)
	}

	var verifier *servicetoken.Verifier
	if cfg.ServiceTokenPublicKeyPath != "" {
		verifier, err = servicetoken.NewVerifier(cfg.ServiceTokenPublicKeyPath, "worker", cfg.ServiceTokenIssuers)
		if err != nil {
			log.Fatalf("failed to init service token verifier: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:           appCore,
		Origin:        origin,
		AllowedOrigin: cfg.AllowedOrigin,
		Verifier:      verifier,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("worker listening", "addr", addr, "version", cfg.CacheVersion, "cache", cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
	appCore.Shutdown()
}

func newCacheStore(cfg config.FileConfig, client redis.UniversalClient) (assetcache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		return assetcache.NewRedisStore(client, cfg.RedisPrefix+":cache"), nil
	case "minio":
		return assetcache.NewMinioStore(assetcache.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return assetcache.NewMemoryStore(), nil
	}
}

func newReminderStore(cfg config.FileConfig, client redis.UniversalClient) (store.ReminderStore, error) {
	switch cfg.ReminderStore {
	case "memory":
		return store.NewMemoryReminderStore(), nil
	case "redis":
		return store.NewRedisReminderStore(client, cfg.RedisPrefix), nil
	case "postgres":
		return store.NewGormReminderStore(cfg.DatabaseURL)
	default:
		return nil, nil
	}
}

func newNotifier(cfg config.FileConfig) (app.Notifier, error) {
	if cfg.Notifier == "webhook" {
		return app.NewWebhookNotifier(cfg.WebhookURL, nil)
	}
	return app.LogNotifier{}, nil
}
