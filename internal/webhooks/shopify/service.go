package shopifywebhook

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/orderbridge/internal/revolve"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/idempotency"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

const consumerName = "shopify-webhooks"

// Outcome labels a handled delivery for logs and metrics.
type Outcome string

const (
	OutcomeHandled   Outcome = "handled"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

type shopResolver interface {
	Resolve(ctx context.Context, store string) (*sessions.Credentials, error)
}

// ServiceParams groups webhook dependencies. Dispatcher is nil when downstream sync is disabled.
type ServiceParams struct {
	Sessions   shopResolver
	Dispatcher revolve.Dispatcher
	Guard      *idempotency.Manager
	Logger     *logger.Logger
}

// Service routes verified order webhooks.
type Service struct {
	sessions   shopResolver
	dispatcher revolve.Dispatcher
	guard      *idempotency.Manager
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session resolver required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		sessions:   params.Sessions,
		dispatcher: params.Dispatcher,
		guard:      params.Guard,
		logg:       params.Logger,
	}, nil
}

// HandleEvent checks the shop is installed, deduplicates by webhook id and
// routes by topic. Topics outside allowed are rejected as unhandled.
func (s *Service) HandleEvent(ctx context.Context, event Event, allowed ...enums.WebhookTopic) (Outcome, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":      event.Topic,
		"shop":       event.Shop,
		"webhook_id": event.WebhookID,
	})

	if _, err := s.sessions.Resolve(ctx, event.Shop); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			s.logg.Error(ctx, "admin context unavailable", err)
			return "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "admin context unavailable")
		}
		return "", err
	}

	topic, err := enums.ParseWebhookTopic(event.Topic)
	if err != nil || !topicAllowed(topic, allowed) {
		s.logg.Warn(ctx, "unhandled webhook topic")
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "unhandled webhook topic").
			WithDetails(map[string]any{"topic": event.Topic})
	}

	if event.WebhookID != "" {
		claimed, err := s.guard.Claim(ctx, consumerName, event.WebhookID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
		}
		if !claimed {
			s.logg.Info(ctx, "duplicate webhook delivery")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.route(ctx, topic, event)
	if err != nil {
		if event.WebhookID != "" {
			if relErr := s.guard.Release(ctx, consumerName, event.WebhookID); relErr != nil {
				s.logg.Error(ctx, "release webhook claim", relErr)
			}
		}
		return "", err
	}
	return outcome, nil
}

func (s *Service) route(ctx context.Context, topic enums.WebhookTopic, event Event) (Outcome, error) {
	switch topic {
	case enums.WebhookTopicOrdersCreate:
		return s.dispatch(ctx, enums.SyncKindOrderCreated, event)
	case enums.WebhookTopicOrdersPaid:
		return s.dispatch(ctx, enums.SyncKindOrderPaid, event)
	case enums.WebhookTopicOrdersRiskAssessment:
		return s.handleRisk(ctx, event)
	default:
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "unhandled webhook topic")
	}
}

func (s *Service) dispatch(ctx context.Context, kind enums.SyncKind, event Event) (Outcome, error) {
	if s.dispatcher == nil {
		s.logg.Info(ctx, "downstream sync disabled, acknowledging")
		return OutcomeIgnored, nil
	}
	job, err := revolve.NewJob(kind, event.Shop, event.WebhookID, event.Payload)
	if err != nil {
		return "", err
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"job_id":   job.ID,
		"order_id": job.OrderID,
	}), "downstream sync queued")
	return OutcomeHandled, nil
}

type riskAssessment struct {
	OrderID   json.Number `json:"order_id"`
	RiskLevel string      `json:"risk_level"`
	Provider  string      `json:"provider_title"`
}

// handleRisk only records the assessment. Risk payloads carry no order data, so paid sync
// runs off orders/paid.
func (s *Service) handleRisk(ctx context.Context, event Event) (Outcome, error) {
	var payload riskAssessment
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid risk assessment payload")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   payload.OrderID.String(),
		"risk_level": payload.RiskLevel,
	})
	if payload.RiskLevel != "none" {
		s.logg.Info(ctx, "risk assessment recorded")
		return OutcomeIgnored, nil
	}
	s.logg.Info(ctx, "order cleared risk assessment")
	return OutcomeHandled, nil
}

func topicAllowed(topic enums.WebhookTopic, allowed []enums.WebhookTopic) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == topic {
			return true
		}
	}
	return false
}
