package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/orderbridge/internal/revolve"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/db"
	"github.com/angelmondragon/orderbridge/pkg/idempotency"
	"github.com/angelmondragon/orderbridge/pkg/instance"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/pubsub"
	"github.com/angelmondragon/orderbridge/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	if !cfg.Revolve.Enabled() {
		return errors.New("revolve server url is required for the sync worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	closers = append(closers, pubsubClient.Close)

	resolver, err := sessions.NewResolver(sessions.NewRepository(dbClient.DB()), sessions.ResolverOptions{
		DomainSuffix: cfg.Shopify.DomainSuffix,
		APIVersion:   cfg.Shopify.APIVersion,
		HTTPTimeout:  cfg.Shopify.HTTPTimeout,
	}, logg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	client, err := revolve.NewClient(cfg.Revolve.ServerURL, cfg.Revolve.TokenID, cfg.Revolve.TokenSecret, cfg.Revolve.HTTPTimeout)
	if err != nil {
		return err
	}
	tokens, err := revolve.NewTokenCache(redisClient, client, logg)
	if err != nil {
		return err
	}
	syncer, err := revolve.NewSyncer(revolve.SyncerParams{
		Client: client,
		Tokens: tokens,
		Writers: func(ctx context.Context, shop string) (revolve.OrderMetafields, error) {
			return resolver.Gateway(ctx, shop)
		},
		MetafieldNamespace: cfg.Shopify.MetafieldNamespace,
		Metrics:            metrics.NewSyncJobMetrics(reg),
		Logger:             logg,
	})
	if err != nil {
		return err
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Idempotency.WebhookTTL)
	if err != nil {
		return err
	}
	consumer, err := revolve.NewConsumer(syncer, pubsubClient.SyncSubscription(), guard, logg)
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	closers = append(closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.ID("sync-worker-0"),
		"subscription": cfg.PubSub.SyncSubscription,
	})
	logg.Info(ctx, "starting sync worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
	return nil
}
