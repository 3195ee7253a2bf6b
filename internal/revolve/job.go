package revolve

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
)

// Job is one downstream sync unit, carried in-process or over Pub/Sub.
type Job struct {
	ID         string          `json:"id"`
	Kind       enums.SyncKind  `json:"kind"`
	Shop       string          `json:"shop"`
	OrderID    string          `json:"order_id"`
	WebhookID  string          `json:"webhook_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewJob validates the webhook order body and wraps it for dispatch.
func NewJob(kind enums.SyncKind, shop, webhookID string, payload []byte) (Job, error) {
	if !kind.IsValid() {
		return Job{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown sync kind").
			WithDetails(map[string]any{"kind": kind})
	}
	order, err := ParseWebhookOrder(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Shop:       shop,
		OrderID:    order.OrderNumericID(),
		WebhookID:  webhookID,
		Payload:    append(json.RawMessage(nil), payload...),
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (j Job) logFields() map[string]any {
	return map[string]any{
		"job_id":     j.ID,
		"sync_kind":  j.Kind.String(),
		"shop":       j.Shop,
		"order_id":   j.OrderID,
		"webhook_id": j.WebhookID,
	}
}
