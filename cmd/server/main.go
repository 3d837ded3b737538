package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"paygate/internal/app"
	"paygate/internal/cache"
	"paygate/internal/config"
	"paygate/internal/events"
	"paygate/internal/server"
	"paygate/internal/storage"
	"paygate/internal/store"
	"paygate/internal/usertoken"
	"paygate/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	// An unreachable database is not fatal: the process starts in degraded
	// mode and data routes answer 503 until a restart with a working DSN.
	var st store.Store
	if cfg.DatabaseURL != "" {
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			slog.Warn("database unavailable, starting degraded", "err", err)
		} else {
			st = gormStore
		}
	} else {
		slog.Warn("no databaseURL configured, starting degraded")
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		minioStore, err := storage.NewMinioStore(
			cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatalf("failed to init object store: %v", err)
		}
		objects = minioStore
	}

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to init event publisher: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	var publishedCache *cache.PublishedCache
	if cfg.RedisAddr != "" {
		cacheTTL, err := config.ParseTTL(cfg.PublishedCacheTTL, time.Minute)
		if err != nil {
			log.Fatalf("failed to parse publishedCacheTTL: %v", err)
		}
		publishedCache, err = cache.NewPublishedCache(cfg.RedisAddr, cfg.RedisPassword, cacheTTL)
		if err != nil {
			log.Fatalf("failed to init published cache: %v", err)
		}
	}

	var tokenVerifier *usertoken.Verifier
	if cfg.AuthJWKSURL != "" {
		tokenVerifier, err = usertoken.NewVerifier(usertoken.Config{
			JWKSURL:    cfg.AuthJWKSURL,
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			HTTPClient: &http.Client{Timeout: 5 * time.Second},
		})
		if err != nil {
			log.Fatalf("failed to init jwks verifier: %v", err)
		}
	} else {
		slog.Warn("no authJwksURL configured, token checks disabled")
	}

	downloadTTL, err := config.ParseTTL(cfg.DownloadTTL, 15*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse downloadTTL: %v", err)
	}

	appCore := app.New(app.Config{
		Store:       st,
		Objects:     objects,
		Events:      publisher,
		Cache:       publishedCache,
		DownloadTTL: downloadTTL,
	})

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		TokenVerifier:              tokenVerifier,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		PurchaseRateLimitPerMinute: cfg.PurchaseRateLimitPerMinute,
		TrustedProxyCIDRs:          cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("paygate server listening", "addr", addr, "database_connected", appCore.DatabaseConnected())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
