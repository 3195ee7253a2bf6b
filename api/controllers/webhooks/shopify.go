package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/orderbridge/api/responses"
	shopifywebhook "github.com/angelmondragon/orderbridge/internal/webhooks/shopify"
	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
)

const maxWebhookBody = 1 << 20

type ShopifyWebhookService interface {
	HandleEvent(ctx context.Context, event shopifywebhook.Event, allowed ...enums.WebhookTopic) (shopifywebhook.Outcome, error)
}

// ShopifyWebhook verifies the delivery signature and hands the event to svc.
// Only topics in allowed are accepted on this route.
func ShopifyWebhook(svc ShopifyWebhookService, secret string, webhookMetrics *metrics.WebhookMetrics, logg *logger.Logger, allowed ...enums.WebhookTopic) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}
		if len(payload) > maxWebhookBody {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large"))
			return
		}

		event := shopifywebhook.EventFromRequest(r.Header, payload)

		if err := shopifywebhook.VerifySignature(payload, r.Header.Get(shopifywebhook.HeaderHmac), secret); err != nil {
			webhookMetrics.Observe(event.Topic, "rejected")
			msg := "invalid webhook signature"
			if errors.Is(err, shopifywebhook.ErrSignatureMissing) {
				msg = "webhook signature missing"
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
			return
		}

		outcome, err := svc.HandleEvent(ctx, event, allowed...)
		if err != nil {
			webhookMetrics.Observe(event.Topic, "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		webhookMetrics.Observe(event.Topic, string(outcome))
		responses.WriteSuccess(w, nil)
	}
}
