package fulfillment

import (
	"context"
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

type stubGateway struct {
	orders      []shopify.FulfillmentOrder
	fetchErr    error
	fulfillment *shopify.Fulfillment
	createErr   error

	fetchCalls  []string
	createCalls []shopify.CreateFulfillmentParams
}

func (g *stubGateway) FetchFulfillmentOrders(_ context.Context, orderRef string) ([]shopify.FulfillmentOrder, error) {
	g.fetchCalls = append(g.fetchCalls, orderRef)
	return g.orders, g.fetchErr
}

func (g *stubGateway) CreateFulfillment(_ context.Context, params shopify.CreateFulfillmentParams) (*shopify.Fulfillment, error) {
	g.createCalls = append(g.createCalls, params)
	return g.fulfillment, g.createErr
}

func newTestService(t *testing.T, selector Selector) Service {
	t.Helper()
	svc, err := NewService(selector, nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func fulfillmentErr(t *testing.T, err error) *Error {
	t.Helper()
	var fErr *Error
	if !errors.As(err, &fErr) {
		t.Fatalf("expected fulfillment error, got %v", err)
	}
	return fErr
}

func TestFulfillSelectsFirstAndForwardsTracking(t *testing.T) {
	gw := &stubGateway{
		orders: []shopify.FulfillmentOrder{
			{ID: "gid://shopify/FulfillmentOrder/1"},
			{ID: "gid://shopify/FulfillmentOrder/2"},
		},
		fulfillment: &shopify.Fulfillment{ID: "gid://shopify/Fulfillment/9", Status: "SUCCESS"},
	}
	svc := newTestService(t, SelectFirst{})

	result, err := svc.Fulfill(context.Background(), gw, FulfillInput{
		OrderID:        "1001",
		NotifyCustomer: true,
		Tracking:       shopify.TrackingInfo{Company: "UPS", Number: "1Z"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "gid://shopify/Fulfillment/9" {
		t.Fatalf("unexpected fulfillment %+v", result)
	}
	if len(gw.createCalls) != 1 {
		t.Fatalf("expected one create call, got %d", len(gw.createCalls))
	}
	call := gw.createCalls[0]
	if call.FulfillmentOrderID != "gid://shopify/FulfillmentOrder/1" || !call.NotifyCustomer || call.Tracking.Company != "UPS" {
		t.Fatalf("unexpected create params %+v", call)
	}
}

func TestFulfillWithoutFulfillmentOrders(t *testing.T) {
	gw := &stubGateway{orders: nil}
	svc := newTestService(t, SelectFirst{})

	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{OrderID: "1001"})
	if fulfillmentErr(t, err).Kind != KindNoFulfillmentOrders {
		t.Fatalf("expected NoFulfillmentOrders, got %v", err)
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code")
	}
	if len(gw.createCalls) != 0 {
		t.Fatalf("expected no fulfillment create call")
	}
}

func TestFulfillMissingOrderIsNotFound(t *testing.T) {
	gw := &stubGateway{fetchErr: &shopify.Error{Kind: shopify.KindNotFound, Operation: "fetchFulfillmentOrders"}}
	svc := newTestService(t, SelectFirst{})

	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{OrderID: "404"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFulfillRequiresOrderID(t *testing.T) {
	gw := &stubGateway{}
	svc := newTestService(t, SelectFirst{})

	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(gw.fetchCalls) != 0 {
		t.Fatalf("expected no remote calls")
	}
}

func TestFulfillNoFulfillmentReturned(t *testing.T) {
	gw := &stubGateway{orders: []shopify.FulfillmentOrder{{ID: "fo-1"}}}
	svc := newTestService(t, SelectFirst{})

	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{OrderID: "1001"})
	fErr := fulfillmentErr(t, err)
	if fErr.Kind != KindFulfillmentFailed || fErr.FulfillmentOrderID != "fo-1" {
		t.Fatalf("expected FulfillmentFailed for fo-1, got %+v", fErr)
	}
}

func TestFulfillPassesUserErrorsThrough(t *testing.T) {
	gw := &stubGateway{
		orders: []shopify.FulfillmentOrder{{ID: "fo-1"}},
		createErr: &shopify.Error{
			Kind:       shopify.KindUserErrors,
			Operation:  "createFulfillment",
			UserErrors: []shopify.UserError{{Field: []string{"fulfillment"}, Message: "already fulfilled"}},
		},
	}
	svc := newTestService(t, SelectFirst{})

	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{OrderID: "1001"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRemoteUserError {
		t.Fatalf("expected remote user error, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if _, ok := details["user_errors"]; !ok {
		t.Fatalf("expected user errors in details, got %+v", details)
	}
}

func TestSelectFirstOpenSkipsFulfilledOrders(t *testing.T) {
	orders := []shopify.FulfillmentOrder{
		{ID: "fo-closed", LineItems: []shopify.FulfillmentOrderLineItem{{RemainingQuantity: 0}}},
		{ID: "fo-open", LineItems: []shopify.FulfillmentOrderLineItem{{RemainingQuantity: 3}}},
	}
	got, ok := SelectFirstOpen{}.Select(orders)
	if !ok || got.ID != "fo-open" {
		t.Fatalf("expected fo-open, got %+v", got)
	}
	if first, _ := (SelectFirst{}).Select(orders); first.ID != "fo-closed" {
		t.Fatalf("first selector must keep index 0, got %s", first.ID)
	}

	gw := &stubGateway{orders: orders[:1]}
	svc := newTestService(t, SelectFirstOpen{})
	_, err := svc.Fulfill(context.Background(), gw, FulfillInput{OrderID: "1001"})
	if fulfillmentErr(t, err).Kind != KindNoFulfillmentOrders || len(gw.createCalls) != 0 {
		t.Fatalf("expected no open fulfillment order failure, got %v", err)
	}
}

func TestNewSelector(t *testing.T) {
	if s, err := NewSelector(""); err != nil || s.Name() != "first" {
		t.Fatalf("expected first by default, got %v %v", s, err)
	}
	if s, err := NewSelector("first_open"); err != nil || s.Name() != "first_open" {
		t.Fatalf("expected first_open, got %v %v", s, err)
	}
	if _, err := NewSelector("nearest"); err == nil {
		t.Fatalf("expected unknown selector error")
	}
}
