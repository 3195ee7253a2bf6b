package enums

import (
	"fmt"
	"strings"
)

// WebhookTopic identifies the commerce platform event carried by a webhook delivery.
type WebhookTopic string

const (
	WebhookTopicOrdersCreate         WebhookTopic = "orders/create"
	WebhookTopicOrdersPaid           WebhookTopic = "orders/paid"
	WebhookTopicOrdersRiskAssessment WebhookTopic = "orders/risk_assessment_changed"
)

var validWebhookTopics = []WebhookTopic{
	WebhookTopicOrdersCreate,
	WebhookTopicOrdersPaid,
	WebhookTopicOrdersRiskAssessment,
}

// String implements fmt.Stringer.
func (t WebhookTopic) String() string {
	return string(t)
}

// IsValid reports whether the value is a handled WebhookTopic.
func (t WebhookTopic) IsValid() bool {
	for _, candidate := range validWebhookTopics {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWebhookTopic accepts both the header form ("orders/create") and the
// enum form used by app frameworks ("ORDERS_CREATE").
func ParseWebhookTopic(value string) (WebhookTopic, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !strings.Contains(normalized, "/") {
		normalized = strings.Replace(normalized, "_", "/", 1)
	}
	for _, candidate := range validWebhookTopics {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unhandled webhook topic %q", value)
}

// SyncKind names the downstream sync job derived from a webhook.
type SyncKind string

const (
	SyncKindOrderCreated SyncKind = "order_created"
	SyncKindOrderPaid    SyncKind = "order_paid"
)

// String implements fmt.Stringer.
func (k SyncKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known SyncKind.
func (k SyncKind) IsValid() bool {
	return k == SyncKindOrderCreated || k == SyncKindOrderPaid
}
