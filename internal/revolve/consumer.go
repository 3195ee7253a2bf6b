package revolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/idempotency"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

const syncConsumerName = "revolve-sync"

// Consumer drains sync jobs published by PubSubDispatcher.
type Consumer struct {
	handler      JobHandler
	subscription *gcppubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a sync job consumer.
func NewConsumer(handler JobHandler, subscription *gcppubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("sync handler required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("sync subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		handler:      handler,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, data []byte) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		c.logg.Error(logCtx, "failed to decode sync job", err)
		return processResult{ack: true}
	}
	if job.ID == "" {
		c.logg.Error(logCtx, "sync job missing id", errors.New("empty job id"))
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, job.logFields())

	claimed, err := c.idempotency.Claim(ctx, syncConsumerName, job.ID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "sync job already processed")
		return processResult{ack: true}
	}

	if err := c.handler.Handle(logCtx, job); err != nil {
		if !retryable(err) {
			return processResult{ack: true}
		}
		_ = c.idempotency.Release(ctx, syncConsumerName, job.ID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

// retryable reports whether redelivery could succeed. Payload problems never will.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	return typed.Code() != pkgerrors.CodeValidation
}
