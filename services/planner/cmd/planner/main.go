package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"biblepace/internal/ratelimit"
	"biblepace/internal/servicetoken"
	"biblepace/internal/util"
	"biblepace/pkg/catalog"
	"biblepace/pkg/progress"
	"biblepace/pkg/queue"
	"biblepace/services/planner/internal/app"
	"biblepace/services/planner/internal/config"
	"biblepace/services/planner/internal/server"
	"biblepace/services/planner/internal/workerclient"
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

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
	}

	publisher, err := newPublisher(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to init reminder publisher: %v", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewFixedWindowLimiter(redisClient, cfg.RedisPrefix+":ratelimit", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	trusted, err := util.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	appCore := app.New(app.Config{
		Catalog:   catalog.Default(),
		Location:  loc,
		Language:  progress.ParseLanguage(cfg.Language),
		Policy:    progress.ParsePolicy(cfg.InclusionPolicy),
		Publisher: publisher,
	})

	httpServer, err := server.New(server.Config{
		App:            appCore,
		AllowedOrigin:  cfg.AllowedOrigin,
		Limiter:        limiter,
		TrustedProxies: trusted,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("planner listening", "addr", addr, "policy", cfg.InclusionPolicy, "language", cfg.Language)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// newPublisher prefers the shared command stream and falls back to posting
// straight to the worker.
func newPublisher(cfg config.FileConfig, client redis.UniversalClient) (app.Publisher, error) {
	if client != nil {
		q, err := queue.NewRedisCommandQueue(queue.Config{Client: client, Stream: cfg.QueueStream})
		if err != nil {
			return nil, err
		}
		return app.QueuePublisher{Queue: q}, nil
	}
	if cfg.WorkerURL != "" {
		var signer *servicetoken.Signer
		if cfg.ServiceTokenKeyPath != "" {
			var err error
			signer, err = servicetoken.NewSigner(cfg.ServiceTokenKeyPath, cfg.ServiceTokenIssuer, servicetoken.DefaultTTL)
			if err != nil {
				return nil, err
			}
		}
		return workerclient.NewClient(cfg.WorkerURL, signer), nil
	}
	slog.Warn("reminder delivery not configured; set redisAddr or workerURL")
	return nil, nil
}
