package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderbridge/api/controllers"
	ordercontrollers "github.com/angelmondragon/orderbridge/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/orderbridge/api/controllers/webhooks"
	"github.com/angelmondragon/orderbridge/api/middleware"
	"github.com/angelmondragon/orderbridge/internal/fulfillment"
	"github.com/angelmondragon/orderbridge/internal/orders"
	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/enums"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/redis"
)

// Dependencies groups everything the HTTP surface is wired to.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	Pingers        map[string]controllers.Pinger
	Gatherer       prometheus.Gatherer
	Idempotency    redis.IdempotencyStore
	Shops          middleware.ShopResolver
	Gateways       ordercontrollers.GatewayFactory
	Orders         orders.Service
	Fulfillment    fulfillment.Service
	Webhooks       webhookcontrollers.ShopifyWebhookService
	WebhookMetrics *metrics.WebhookMetrics
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks/app", func(r chi.Router) {
		r.Post("/orders", webhookcontrollers.ShopifyWebhook(deps.Webhooks, cfg.Shopify.APISecret, deps.WebhookMetrics, logg,
			enums.WebhookTopicOrdersCreate, enums.WebhookTopicOrdersPaid))
		r.Post("/risk", webhookcontrollers.ShopifyWebhook(deps.Webhooks, cfg.Shopify.APISecret, deps.WebhookMetrics, logg,
			enums.WebhookTopicOrdersRiskAssessment))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIToken(cfg.API.Token, logg))
		r.Use(middleware.ShopSession(deps.Shops, logg))

		idem := middleware.Idempotency(deps.Idempotency, requestTTL(cfg), logg)

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.With(idem).Post("/cancel", ordercontrollers.Cancel(deps.Orders, deps.Gateways, logg))
			r.With(idem).Post("/fulfill", ordercontrollers.Fulfill(deps.Fulfillment, deps.Gateways, logg))
			r.Get("/line-items", ordercontrollers.LineItems(deps.Orders, deps.Gateways, logg))
			r.Get("/return", ordercontrollers.Return(logg))
			r.With(idem).Post("/return", ordercontrollers.Return(logg))
		})
	})

	return r
}

func requestTTL(cfg *config.Config) time.Duration {
	if cfg.Idempotency.RequestTTL > 0 {
		return cfg.Idempotency.RequestTTL
	}
	return 24 * time.Hour
}
