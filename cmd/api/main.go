package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/orderbridge/api/controllers"
	ordercontrollers "github.com/angelmondragon/orderbridge/api/controllers/orders"
	"github.com/angelmondragon/orderbridge/api/routes"
	"github.com/angelmondragon/orderbridge/internal/fulfillment"
	"github.com/angelmondragon/orderbridge/internal/orderlock"
	"github.com/angelmondragon/orderbridge/internal/orders"
	"github.com/angelmondragon/orderbridge/internal/revolve"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	shopifywebhook "github.com/angelmondragon/orderbridge/internal/webhooks/shopify"
	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/db"
	"github.com/angelmondragon/orderbridge/pkg/idempotency"
	"github.com/angelmondragon/orderbridge/pkg/instance"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/migrate"
	"github.com/angelmondragon/orderbridge/pkg/pubsub"
	"github.com/angelmondragon/orderbridge/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	workflowMetrics := metrics.NewWorkflowMetrics(reg)
	webhookMetrics := metrics.NewWebhookMetrics(reg)
	syncMetrics := metrics.NewSyncJobMetrics(reg)

	resolver, err := sessions.NewResolver(sessions.NewRepository(dbClient.DB()), sessions.ResolverOptions{
		DomainSuffix: cfg.Shopify.DomainSuffix,
		APIVersion:   cfg.Shopify.APIVersion,
		HTTPTimeout:  cfg.Shopify.HTTPTimeout,
	}, logg)
	if err != nil {
		return err
	}

	locker, err := newLocker(cfg.Orders, redisClient)
	if err != nil {
		return err
	}
	applier, err := orders.NewApplier(cfg.Orders.ApplyStrategy)
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(locker, applier, workflowMetrics, logg)
	if err != nil {
		return err
	}
	selector, err := fulfillment.NewSelector(cfg.Orders.FulfillmentSelector)
	if err != nil {
		return err
	}
	fulfillmentSvc, err := fulfillment.NewService(selector, workflowMetrics, logg)
	if err != nil {
		return err
	}

	pingers := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	dispatcher, closeDispatcher, err := newDispatcher(ctx, cfg, logg, redisClient, resolver, syncMetrics, pingers)
	if err != nil {
		return err
	}
	if closeDispatcher != nil {
		closers = append(closers, closeDispatcher)
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Idempotency.WebhookTTL)
	if err != nil {
		return err
	}
	webhookSvc, err := shopifywebhook.NewService(shopifywebhook.ServiceParams{
		Sessions:   resolver,
		Dispatcher: dispatcher,
		Guard:      guard,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			Pingers:        pingers,
			Gatherer:       reg,
			Idempotency:    redisClient,
			Shops:          resolver,
			Gateways:       ordercontrollers.ShopifyGateways(resolver),
			Orders:         ordersSvc,
			Fulfillment:    fulfillmentSvc,
			Webhooks:       webhookSvc,
			WebhookMetrics: webhookMetrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"instance":       instance.ID("local"),
		"sync_transport": cfg.Sync.Transport,
		"sync_enabled":   dispatcher != nil,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLocker(cfg config.OrdersConfig, redisClient *redis.Client) (orderlock.Locker, error) {
	if strings.EqualFold(cfg.LockBackend, config.LockBackendRedis) {
		return orderlock.NewRedisLocker(redisClient, cfg.LockTTL)
	}
	return orderlock.NewMemoryLocker(), nil
}

// newDispatcher returns a nil dispatcher when downstream sync is not configured.
func newDispatcher(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	resolver *sessions.Resolver,
	syncMetrics *metrics.SyncJobMetrics,
	pingers map[string]controllers.Pinger,
) (revolve.Dispatcher, func() error, error) {
	if !cfg.Revolve.Enabled() {
		logg.Warn(ctx, "downstream sync disabled: revolve server url not set")
		return nil, nil, nil
	}

	if strings.EqualFold(cfg.Sync.Transport, config.SyncTransportPubSub) {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, nil, err
		}
		pingers["pubsub"] = client
		dispatcher, err := revolve.NewPubSubDispatcher(pubsub.NewPublisher(client.SyncPublisher()), logg)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return dispatcher, client.Close, nil
	}

	syncer, err := buildSyncer(cfg, logg, redisClient, resolver, syncMetrics)
	if err != nil {
		return nil, nil, err
	}
	dispatcher, err := revolve.NewInlineDispatcher(syncer, cfg.Sync.Workers, cfg.Sync.QueueSize, logg)
	if err != nil {
		return nil, nil, err
	}
	dispatcher.Start(ctx)
	return dispatcher, dispatcher.Close, nil
}

func buildSyncer(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, resolver *sessions.Resolver, syncMetrics *metrics.SyncJobMetrics) (*revolve.Syncer, error) {
	client, err := revolve.NewClient(cfg.Revolve.ServerURL, cfg.Revolve.TokenID, cfg.Revolve.TokenSecret, cfg.Revolve.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	tokens, err := revolve.NewTokenCache(redisClient, client, logg)
	if err != nil {
		return nil, err
	}
	return revolve.NewSyncer(revolve.SyncerParams{
		Client: client,
		Tokens: tokens,
		Writers: func(ctx context.Context, shop string) (revolve.OrderMetafields, error) {
			return resolver.Gateway(ctx, shop)
		},
		MetafieldNamespace: cfg.Shopify.MetafieldNamespace,
		Metrics:            syncMetrics,
		Logger:             logg,
	})
}
