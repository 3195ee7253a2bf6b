package shopifywebhook

import (
	"net/http"
	"strings"
)

const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-Api-Version"
)

// Event is one verified webhook delivery.
type Event struct {
	Topic      string
	Shop       string
	WebhookID  string
	APIVersion string
	Payload    []byte
}

// EventFromRequest collects the delivery headers around an already-read body.
func EventFromRequest(header http.Header, body []byte) Event {
	return Event{
		Topic:      strings.TrimSpace(header.Get(HeaderTopic)),
		Shop:       strings.TrimSpace(header.Get(HeaderShopDomain)),
		WebhookID:  strings.TrimSpace(header.Get(HeaderWebhookID)),
		APIVersion: strings.TrimSpace(header.Get(HeaderAPIVersion)),
		Payload:    body,
	}
}
