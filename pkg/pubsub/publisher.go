package pubsub

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Message aliases the v2 message so callers need not import the SDK.
type Message = pubsub.Message

// PublishResult resolves the server-assigned message id.
type PublishResult interface {
	Get(ctx context.Context) (string, error)
}

// Publisher publishes one message at a time.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) PublishResult
}

// NewPublisher adapts an SDK publisher to Publisher. A nil handle yields nil.
func NewPublisher(p *pubsub.Publisher) Publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *Message) PublishResult {
	if p == nil || p.Publisher == nil {
		return failedResult{err: errors.New("publisher is nil")}
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type failedResult struct{ err error }

func (r failedResult) Get(context.Context) (string, error) { return "", r.err }
