package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/99minutos/marketing-access/internal/api"
	"github.com/99minutos/marketing-access/internal/api/handler"
	"github.com/99minutos/marketing-access/internal/api/metrics"
	"github.com/99minutos/marketing-access/internal/infrastructure/config"
	"github.com/99minutos/marketing-access/internal/infrastructure/db/mongo"
	"github.com/99minutos/marketing-access/internal/infrastructure/db/redis"
	"github.com/99minutos/marketing-access/internal/infrastructure/rbac"
	"github.com/99minutos/marketing-access/pkg/logger"
)

const (
	serviceName     = "marketing-access"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: serviceName})
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	auditRepo := mongo.NewAuditRepository(db)
	if err := auditRepo.EnsureIndexes(ctx, cfg.Mongo.AuditRetention); err != nil {
		log.Warn().Err(err).Msg("could not create audit indexes")
	}

	client, err := rbac.New(rbac.Config{
		BaseURL: cfg.RBAC.BaseURL,
		Timeout: cfg.RBAC.Timeout,
		CAFile:  cfg.RBAC.CAFile,
	}, log.With().Str("component", "rbac").Logger(), rbac.WithObserver(metrics.ObserveAuthority))
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Config:   cfg,
		RBAC:     client,
		Sessions: redis.NewSessionRepository(rdb),
		Audit:    auditRepo,
		Health: []handler.Dependency{
			{Name: "mongodb", Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Log: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("rbac", cfg.RBAC.BaseURL).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, log)
	})

	return g.Wait()
}

func shutdown(srv *http.Server, log zerolog.Logger) error {
	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
