package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/ev-asset-platform/internal/config"
	"github.com/iliyamo/ev-asset-platform/internal/database"
	"github.com/iliyamo/ev-asset-platform/internal/logger"
	"github.com/iliyamo/ev-asset-platform/internal/middleware"
	"github.com/iliyamo/ev-asset-platform/internal/queue"
	"github.com/iliyamo/ev-asset-platform/internal/repository"
	"github.com/iliyamo/ev-asset-platform/internal/router"
	"github.com/iliyamo/ev-asset-platform/internal/service"
	"github.com/iliyamo/ev-asset-platform/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Env: "production"}).Fatal().Err(err).Msg("config")
	}
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = database.EnsureSchema(schemaCtx, db)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	var revocations service.RevocationStore
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
		revocations = repository.NewRedisRevocations(rdb, "revoked")
		log.Info().Msg("redis connected: revocation list and rate limit enabled")
	} else {
		revocations = repository.NewMemoryRevocations(time.Now)
		log.Warn().Msg("redis unavailable: process-local revocation list, no rate limit")
	}

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		async := service.NewAsyncPublisher(service.NewAMQPPublisher(cfg.AMQPURL), 256, log.Child("events"))
		go async.Run(ctx)
		events = async
		if cfg.AuditConsumerEnabled {
			consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, LogPath: cfg.AuditLogPath, Log: log.Child("audit")}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("audit consumer stopped")
				}
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	svc := service.NewAuthService(service.Deps{
		Accounts:    repository.NewAccountRepo(db),
		Hasher:      utils.NewPasswordHasher(cfg.BcryptCost),
		Issuer:      utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL, time.Now),
		Verifier:    utils.NewTokenVerifier(cfg.JWTSecret, time.Now),
		Revocations: revocations,
		Events:      events,
		Log:         log.Child("auth"),
	})

	e := router.New(router.Deps{
		Service:   svc,
		Cookies:   utils.SessionCookies{Name: cfg.CookieName, Secure: cfg.Production(), MaxAge: cfg.SessionTTL},
		DB:        db,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Log:       log,
		Metrics:   metrics,
		Gatherer:  reg,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
