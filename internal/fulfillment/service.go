package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

const (
	workflowName = "fulfill_order"
	stepFetch    = "fetch_fulfillment_orders"
	stepSelect   = "select"
	stepCreate   = "create_fulfillment"
)

// Gateway is the slice of the Admin API fulfillment needs.
type Gateway interface {
	FetchFulfillmentOrders(ctx context.Context, orderRef string) ([]shopify.FulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, params shopify.CreateFulfillmentParams) (*shopify.Fulfillment, error)
}

var _ Gateway = (*shopify.Client)(nil)

type FulfillInput struct {
	OrderID        string
	NotifyCustomer bool
	Tracking       shopify.TrackingInfo
}

type Service interface {
	Fulfill(ctx context.Context, gw Gateway, input FulfillInput) (*shopify.Fulfillment, error)
}

type service struct {
	selector Selector
	metrics  *metrics.WorkflowMetrics
	logg     *logger.Logger
}

func NewService(selector Selector, workflowMetrics *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if selector == nil {
		return nil, fmt.Errorf("fulfillment selector required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{selector: selector, metrics: workflowMetrics, logg: logg}, nil
}

// Fulfill fetches the order's fulfillment orders fresh, selects one and
// fulfills it with the given tracking data.
func (s *service) Fulfill(ctx context.Context, gw Gateway, input FulfillInput) (*shopify.Fulfillment, error) {
	if gw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment gateway not configured")
	}
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, (&Error{Kind: KindMissingOrderID, Step: "validate"}).toDomain("order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	started := time.Now()
	defer func() { s.metrics.ObserveDuration(workflowName, time.Since(started)) }()

	orders, err := gw.FetchFulfillmentOrders(s.logg.WithStep(ctx, stepFetch), orderID)
	s.metrics.ObserveStep(workflowName, stepFetch, err)
	if err != nil {
		kind := KindFetchFailed
		if shopify.IsNotFound(err) {
			kind = KindNoFulfillmentOrders
		}
		return nil, s.fail(ctx, &Error{Kind: kind, Step: stepFetch, OrderID: orderID, Err: err}, "fetch fulfillment orders failed")
	}
	if len(orders) == 0 {
		return nil, s.fail(ctx, &Error{Kind: KindNoFulfillmentOrders, Step: stepFetch, OrderID: orderID}, "no fulfillment orders found for this order")
	}

	target, ok := s.selector.Select(orders)
	if !ok {
		wfErr := &Error{Kind: KindNoFulfillmentOrders, Step: stepSelect, OrderID: orderID}
		return nil, s.fail(ctx, wfErr, fmt.Sprintf("no fulfillment order matched the %s policy", s.selector.Name()))
	}

	createCtx := s.logg.WithFields(s.logg.WithStep(ctx, stepCreate), map[string]any{
		"fulfillment_order_id": target.ID,
		"candidates":           len(orders),
		"selector":             s.selector.Name(),
	})
	s.logg.Info(createCtx, "creating fulfillment")

	fulfillment, err := gw.CreateFulfillment(createCtx, shopify.CreateFulfillmentParams{
		FulfillmentOrderID: target.ID,
		Tracking:           input.Tracking,
		NotifyCustomer:     input.NotifyCustomer,
	})
	if err == nil && fulfillment == nil {
		err = errors.New("no fulfillment returned")
	}
	s.metrics.ObserveStep(workflowName, stepCreate, err)
	if err != nil {
		wfErr := &Error{Kind: KindFulfillmentFailed, Step: stepCreate, OrderID: orderID, FulfillmentOrderID: target.ID, Err: err}
		return nil, s.fail(createCtx, wfErr, "fulfillment failed")
	}

	s.logg.Info(s.logg.WithField(createCtx, "fulfillment_id", fulfillment.ID), "order fulfilled")
	return fulfillment, nil
}

func (s *service) fail(ctx context.Context, wfErr *Error, message string) error {
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{"kind": string(wfErr.Kind), "step": wfErr.Step}), message, wfErr)
	return wfErr.toDomain(message)
}
