package revolve

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

const invoiceMetafieldKey = "invoice"

type downstream interface {
	SubmitOrder(ctx context.Context, creds Credentials, payload OrderPayload) (*OrderResult, error)
	SubmitPayment(ctx context.Context, creds Credentials, payload PaymentPayload) (*PaymentResult, error)
}

type credentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
	Refresh(ctx context.Context) (Credentials, error)
}

// OrderMetafields reads and stores the downstream invoice on the order.
type OrderMetafields interface {
	GetOrderMetafields(ctx context.Context, orderRef, namespace string) ([]shopify.Metafield, error)
	UpsertOrderMetafield(ctx context.Context, input shopify.MetafieldInput) (*shopify.Metafield, error)
}

// WriterResolver returns the admin client for a shop.
type WriterResolver func(ctx context.Context, shop string) (OrderMetafields, error)

// JobHandler executes one sync job.
type JobHandler interface {
	Handle(ctx context.Context, job Job) error
}

// Syncer pushes created and paid orders to the downstream backend.
type Syncer struct {
	client    downstream
	tokens    credentialSource
	writers   WriterResolver
	namespace string
	metrics   *metrics.SyncJobMetrics
	logg      *logger.Logger
}

// SyncerParams groups Syncer dependencies. Writers may be nil to skip invoice storage.
type SyncerParams struct {
	Client             downstream
	Tokens             credentialSource
	Writers            WriterResolver
	MetafieldNamespace string
	Metrics            *metrics.SyncJobMetrics
	Logger             *logger.Logger
}

// NewSyncer validates dependencies.
func NewSyncer(p SyncerParams) (*Syncer, error) {
	if p.Client == nil {
		return nil, errors.New("revolve client required")
	}
	if p.Tokens == nil {
		return nil, errors.New("token cache required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Syncer{
		client:    p.Client,
		tokens:    p.Tokens,
		writers:   p.Writers,
		namespace: p.MetafieldNamespace,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

// Handle runs the job and records its outcome.
func (s *Syncer) Handle(ctx context.Context, job Job) error {
	start := time.Now()
	ctx = s.logg.WithFields(ctx, job.logFields())

	err := s.handle(ctx, job)
	s.metrics.Observe(job.Kind.String(), time.Since(start), err)
	if err != nil {
		s.logg.Error(ctx, "downstream sync failed", err)
		return err
	}
	s.logg.Info(ctx, "downstream sync completed")
	return nil
}

func (s *Syncer) handle(ctx context.Context, job Job) error {
	order, err := ParseWebhookOrder(job.Payload)
	if err != nil {
		return err
	}
	switch job.Kind {
	case enums.SyncKindOrderCreated:
		return s.syncOrder(ctx, job, order)
	case enums.SyncKindOrderPaid:
		return s.syncPayment(ctx, order)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown sync kind").
			WithDetails(map[string]any{"kind": job.Kind})
	}
}

func (s *Syncer) syncOrder(ctx context.Context, job Job, order *WebhookOrder) error {
	payload, err := BuildOrderPayload(order)
	if err != nil {
		return err
	}

	metafields := s.metafields(ctx, job.Shop)
	if invoice := s.existingInvoice(ctx, metafields, order); invoice != "" {
		s.logg.Info(s.logg.WithField(ctx, "invoice", invoice), "order already synced, skipping submit")
		return nil
	}

	var result *OrderResult
	err = s.withCredentials(ctx, func(creds Credentials) error {
		var submitErr error
		result, submitErr = s.client.SubmitOrder(ctx, creds, payload)
		return submitErr
	})
	if err != nil {
		return err
	}

	invoice := result.Invoice()
	if invoice == "" {
		return nil
	}
	s.storeInvoice(ctx, metafields, order, invoice)
	return nil
}

func (s *Syncer) syncPayment(ctx context.Context, order *WebhookOrder) error {
	payload, err := BuildPaymentPayload(order)
	if err != nil {
		return err
	}
	return s.withCredentials(ctx, func(creds Credentials) error {
		_, submitErr := s.client.SubmitPayment(ctx, creds, payload)
		return submitErr
	})
}

// withCredentials runs call with cached credentials and, when the token is
// rejected, once more with freshly issued ones.
func (s *Syncer) withCredentials(ctx context.Context, call func(Credentials) error) error {
	creds, err := s.tokens.Credentials(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revolve credentials")
	}
	err = call(creds)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	s.logg.Warn(ctx, "revolve token rejected, signing in again")
	creds, err = s.tokens.Refresh(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh revolve credentials")
	}
	return call(creds)
}

func (s *Syncer) metafields(ctx context.Context, shop string) OrderMetafields {
	if s.writers == nil || shop == "" {
		return nil
	}
	store, err := s.writers(ctx, shop)
	if err != nil {
		s.logg.Error(ctx, "resolve admin client for invoice", err)
		return nil
	}
	return store
}

// existingInvoice looks for an invoice written by an earlier delivery of the
// same order. Lookup failures fall through to a normal submit.
func (s *Syncer) existingInvoice(ctx context.Context, store OrderMetafields, order *WebhookOrder) string {
	if store == nil {
		return ""
	}
	fields, err := store.GetOrderMetafields(ctx, orderRef(order), s.namespace)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "invoice lookup failed")
		return ""
	}
	for _, field := range fields {
		if field.Key == invoiceMetafieldKey && field.Value != "" {
			return field.Value
		}
	}
	return ""
}

// storeInvoice failures are logged only; the downstream order already exists
// and a retry would submit it twice.
func (s *Syncer) storeInvoice(ctx context.Context, store OrderMetafields, order *WebhookOrder, invoice string) {
	if store == nil {
		return
	}
	ctx = s.logg.WithField(ctx, "invoice", invoice)
	if _, err := store.UpsertOrderMetafield(ctx, shopify.MetafieldInput{
		OrderID:   orderRef(order),
		Namespace: s.namespace,
		Key:       invoiceMetafieldKey,
		Value:     invoice,
	}); err != nil {
		s.logg.Error(ctx, "store invoice metafield", err)
		return
	}
	s.logg.Info(ctx, "invoice stored on order")
}

func orderRef(order *WebhookOrder) string {
	if order.AdminGraphQLAPIID != "" {
		return order.AdminGraphQLAPIID
	}
	return order.OrderNumericID()
}
