package shopifywebhook

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/orderbridge/internal/revolve"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/idempotency"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

const orderBody = `{"id": 450789469, "financial_status": "paid", "line_items": [{"sku": "SKU-A", "quantity": 1}]}`

type stubResolver struct {
	err error
}

func (s stubResolver) Resolve(_ context.Context, store string) (*sessions.Credentials, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sessions.Credentials{Shop: store, AccessToken: "tok"}, nil
}

type stubDispatcher struct {
	jobs []revolve.Job
	err  error
}

func (d *stubDispatcher) Dispatch(_ context.Context, job revolve.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type inMemoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	delErr error
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newTestService(t *testing.T, resolver shopResolver, dispatcher revolve.Dispatcher) *Service {
	t.Helper()
	guard, err := idempotency.NewManager(newInMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Sessions:   resolver,
		Dispatcher: dispatcher,
		Guard:      guard,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func orderEvent(topic, webhookID string) Event {
	return Event{Topic: topic, Shop: "acme.myshopify.com", WebhookID: webhookID, Payload: []byte(orderBody)}
}

func TestHandleEventRoutesOrderTopics(t *testing.T) {
	cases := []struct {
		topic string
		kind  enums.SyncKind
	}{
		{topic: "orders/create", kind: enums.SyncKindOrderCreated},
		{topic: "ORDERS_CREATE", kind: enums.SyncKindOrderCreated},
		{topic: "orders/paid", kind: enums.SyncKindOrderPaid},
	}
	for _, tc := range cases {
		t.Run(tc.topic, func(t *testing.T) {
			dispatcher := &stubDispatcher{}
			svc := newTestService(t, stubResolver{}, dispatcher)

			outcome, err := svc.HandleEvent(context.Background(), orderEvent(tc.topic, "wh-1"))
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			if outcome != OutcomeHandled {
				t.Fatalf("unexpected outcome %s", outcome)
			}
			if len(dispatcher.jobs) != 1 {
				t.Fatalf("expected one dispatched job")
			}
			job := dispatcher.jobs[0]
			if job.Kind != tc.kind || job.OrderID != "450789469" || job.Shop != "acme.myshopify.com" || job.WebhookID != "wh-1" {
				t.Fatalf("unexpected job %+v", job)
			}
		})
	}
}

func TestHandleEventDuplicateDelivery(t *testing.T) {
	dispatcher := &stubDispatcher{}
	svc := newTestService(t, stubResolver{}, dispatcher)

	if _, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-dup")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-dup"))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", outcome)
	}
	if len(dispatcher.jobs) != 1 {
		t.Fatalf("expected duplicate not dispatched, got %d jobs", len(dispatcher.jobs))
	}
}

func TestHandleEventReleasesClaimOnFailure(t *testing.T) {
	dispatcher := &stubDispatcher{err: pkgerrors.New(pkgerrors.CodeDependency, "queue down")}
	svc := newTestService(t, stubResolver{}, dispatcher)

	if _, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-retry")); err == nil {
		t.Fatalf("expected dispatch failure")
	}
	dispatcher.err = nil
	outcome, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-retry"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if outcome != OutcomeHandled || len(dispatcher.jobs) != 1 {
		t.Fatalf("expected redelivery to be processed, outcome %s jobs %d", outcome, len(dispatcher.jobs))
	}
}

func TestHandleEventLogsReleaseFailure(t *testing.T) {
	store := newInMemoryStore()
	store.delErr = errors.New("redis unavailable")
	guard, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	var logs bytes.Buffer
	svc, err := NewService(ServiceParams{
		Sessions:   stubResolver{},
		Dispatcher: &stubDispatcher{err: pkgerrors.New(pkgerrors.CodeDependency, "queue down")},
		Guard:      guard,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &logs}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-stuck")); err == nil {
		t.Fatalf("expected dispatch failure")
	}
	if !strings.Contains(logs.String(), "release webhook claim") || !strings.Contains(logs.String(), "redis unavailable") {
		t.Fatalf("expected release failure to be logged, got %s", logs.String())
	}
}

func TestHandleEventWithoutSessionIsForbidden(t *testing.T) {
	svc := newTestService(t, stubResolver{err: pkgerrors.New(pkgerrors.CodeValidation, "no session found for store")}, &stubDispatcher{})
	_, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-1"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestHandleEventSessionStoreFailurePropagates(t *testing.T) {
	svc := newTestService(t, stubResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}, &stubDispatcher{})
	_, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-1"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestHandleEventUnhandledTopics(t *testing.T) {
	svc := newTestService(t, stubResolver{}, &stubDispatcher{})

	_, err := svc.HandleEvent(context.Background(), orderEvent("products/update", "wh-1"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown topic, got %v", err)
	}

	_, err = svc.HandleEvent(context.Background(), orderEvent("orders/paid", "wh-2"), enums.WebhookTopicOrdersRiskAssessment)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for disallowed topic, got %v", err)
	}
}

func TestHandleEventRiskAssessment(t *testing.T) {
	dispatcher := &stubDispatcher{}
	svc := newTestService(t, stubResolver{}, dispatcher)

	event := Event{Topic: "orders/risk_assessment_changed", Shop: "acme.myshopify.com", WebhookID: "wh-r1",
		Payload: []byte(`{"order_id": 450789469, "risk_level": "none", "provider_title": "Shopify"}`)}
	outcome, err := svc.HandleEvent(context.Background(), event, enums.WebhookTopicOrdersRiskAssessment)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if outcome != OutcomeHandled {
		t.Fatalf("expected handled, got %s", outcome)
	}

	event.WebhookID = "wh-r2"
	event.Payload = []byte(`{"order_id": 450789469, "risk_level": "high"}`)
	outcome, err = svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeIgnored {
		t.Fatalf("expected ignored high risk, got %s %v", outcome, err)
	}
	if len(dispatcher.jobs) != 0 {
		t.Fatalf("risk assessments do not dispatch sync jobs")
	}
}

func TestHandleEventWithoutDispatcher(t *testing.T) {
	svc := newTestService(t, stubResolver{}, nil)
	outcome, err := svc.HandleEvent(context.Background(), orderEvent("orders/create", "wh-1"))
	if err != nil || outcome != OutcomeIgnored {
		t.Fatalf("expected ignored without dispatcher, got %s %v", outcome, err)
	}
}

func TestHandleEventInvalidPayload(t *testing.T) {
	svc := newTestService(t, stubResolver{}, &stubDispatcher{})
	event := orderEvent("orders/create", "wh-1")
	event.Payload = []byte(`{"email": "x"}`)
	_, err := svc.HandleEvent(context.Background(), event)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(orderBody)
	valid := base64.StdEncoding.EncodeToString(Sign(body, "shpss_secret"))

	if err := VerifySignature(body, valid, "shpss_secret"); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := VerifySignature(body, "", "shpss_secret"); !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("expected missing signature, got %v", err)
	}
	if err := VerifySignature(body, valid, "other"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if err := VerifySignature(body, "!!notbase64", "shpss_secret"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected invalid signature for bad encoding, got %v", err)
	}
	if err := VerifySignature(append(body, ' '), valid, "shpss_secret"); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected tampered body to fail")
	}
}

func TestEventFromRequest(t *testing.T) {
	header := http.Header{}
	header.Set(HeaderTopic, "orders/create")
	header.Set(HeaderShopDomain, "acme.myshopify.com")
	header.Set(HeaderWebhookID, "wh-9")
	header.Set(HeaderAPIVersion, "2025-01")

	event := EventFromRequest(header, []byte("{}"))
	if event.Topic != "orders/create" || event.Shop != "acme.myshopify.com" || event.WebhookID != "wh-9" || event.APIVersion != "2025-01" {
		t.Fatalf("unexpected event %+v", event)
	}
}
