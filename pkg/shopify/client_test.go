package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

type recordedRequest struct {
	Query     string
	Variables map[string]any
	Token     string
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) (*Client, *[]recordedRequest) {
	t.Helper()
	var calls []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload graphQLRequest
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		rec := recordedRequest{Query: payload.Query, Variables: payload.Variables, Token: r.Header.Get(accessTokenHeader)}
		calls = append(calls, rec)
		handler(w, rec)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		Shop:        "demo.myshopify.com",
		AccessToken: "shpat_test",
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Endpoint:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, &calls
}

func writeData(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"data":`+data+`}`)
}

func TestNewClientValidatesOptions(t *testing.T) {
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if _, err := NewClient(Options{AccessToken: "x", Logger: log}); err != errShopRequired {
		t.Fatalf("expected shop required, got %v", err)
	}
	if _, err := NewClient(Options{Shop: "demo.myshopify.com", Logger: log}); err != errAccessTokenRequired {
		t.Fatalf("expected access token required, got %v", err)
	}
	if _, err := NewClient(Options{Shop: "demo.myshopify.com", AccessToken: "x"}); err != errLoggerRequired {
		t.Fatalf("expected logger required, got %v", err)
	}

	client, err := NewClient(Options{Shop: "demo.myshopify.com", AccessToken: "x", Logger: log})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.endpoint != "https://demo.myshopify.com/admin/api/2025-01/graphql.json" {
		t.Fatalf("unexpected endpoint %s", client.endpoint)
	}
}

func TestGIDRendering(t *testing.T) {
	if got := OrderGID("1001"); got != "gid://shopify/Order/1001" {
		t.Fatalf("unexpected order gid %s", got)
	}
	if got := OrderGID("gid://shopify/Order/1001"); got != "gid://shopify/Order/1001" {
		t.Fatalf("rendering should be idempotent, got %s", got)
	}
	if got := OrderGID("  "); got != "" {
		t.Fatalf("blank ids render empty, got %q", got)
	}
	if got := FulfillmentOrderGID("55"); got != "gid://shopify/FulfillmentOrder/55" {
		t.Fatalf("unexpected fulfillment order gid %s", got)
	}
	if got := CalculatedLineItemGID("7"); got != "gid://shopify/CalculatedLineItem/7" {
		t.Fatalf("unexpected calculated line item gid %s", got)
	}
	if got := LegacyID("gid://shopify/Order/1001"); got != "1001" {
		t.Fatalf("unexpected legacy id %s", got)
	}
	if got := LegacyID("1001"); got != "1001" {
		t.Fatalf("plain ids pass through, got %s", got)
	}
}

func TestFetchFulfillmentOrders(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"order":{"id":"gid://shopify/Order/1001","fulfillmentOrders":{"nodes":[
			{"id":"gid://shopify/FulfillmentOrder/1","status":"OPEN","lineItems":{"nodes":[
				{"id":"gid://shopify/FulfillmentOrderLineItem/9","remainingQuantity":2,"lineItem":{"name":"Shirt","sku":"A1"}}
			]}}
		]}}}`)
	})

	orders, err := client.FetchFulfillmentOrders(context.Background(), "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "gid://shopify/FulfillmentOrder/1" {
		t.Fatalf("unexpected fulfillment orders %+v", orders)
	}
	if orders[0].RemainingQuantity() != 2 || orders[0].LineItems[0].SKU != "A1" {
		t.Fatalf("line items not mapped: %+v", orders[0].LineItems)
	}

	got := (*calls)[0]
	if got.Token != "shpat_test" {
		t.Fatalf("access token header missing")
	}
	if got.Variables["orderId"] != "gid://shopify/Order/1001" {
		t.Fatalf("order id not rendered: %+v", got.Variables)
	}
}

func TestFetchFulfillmentOrdersMissingOrderIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"order":null}`)
	})

	_, err := client.FetchFulfillmentOrders(context.Background(), "404")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if DomainCode(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %s", DomainCode(err))
	}
}

func TestBeginEditMapsCalculatedOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"orderEditBegin":{"calculatedOrder":{"id":"gid://shopify/CalculatedOrder/7","lineItems":{"nodes":[
			{"id":"gid://shopify/CalculatedLineItem/70","sku":"A1","quantity":1}
		]}},"userErrors":[]}}`)
	})

	calculated, err := client.BeginEdit(context.Background(), "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calculated == nil || calculated.ID != "gid://shopify/CalculatedOrder/7" {
		t.Fatalf("unexpected calculated order %+v", calculated)
	}
	if len(calculated.LineItems) != 1 || calculated.LineItems[0].SKU != "A1" {
		t.Fatalf("unexpected calculated line items %+v", calculated.LineItems)
	}
}

func TestBeginEditWithoutCalculatedOrderReturnsNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"orderEditBegin":{"calculatedOrder":null,"userErrors":[]}}`)
	})

	calculated, err := client.BeginEdit(context.Background(), "1001")
	if err != nil || calculated != nil {
		t.Fatalf("expected nil snapshot without error, got %+v %v", calculated, err)
	}
}

func TestSetLineItemQuantitySendsVariables(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"orderEditSetQuantity":{"calculatedLineItem":{"id":"x","quantity":0},"userErrors":[]}}`)
	})

	err := client.SetLineItemQuantity(context.Background(), SetQuantityParams{
		CalculatedOrderID: "gid://shopify/CalculatedOrder/7",
		LineItemID:        "gid://shopify/CalculatedLineItem/70",
		Quantity:          0,
		Restock:           true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vars := (*calls)[0].Variables
	if vars["quantity"] != float64(0) || vars["restock"] != true {
		t.Fatalf("unexpected variables %+v", vars)
	}
	if vars["lineItemId"] != "gid://shopify/CalculatedLineItem/70" {
		t.Fatalf("line item id should pass through, got %v", vars["lineItemId"])
	}
}

func TestCancelOrderSurfacesUserErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"orderCancel":{"job":null,"orderCancelUserErrors":[{"field":["orderId"],"message":"Order has already been cancelled","code":"INVALID"}]}}`)
	})

	_, err := client.CancelOrder(context.Background(), CancelOrderParams{OrderID: "1002", Reason: enums.CancellationReasonFraud, NotifyCustomer: true})
	gwErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if gwErr.Kind != KindUserErrors {
		t.Fatalf("expected user errors kind, got %s", gwErr.Kind)
	}
	if len(gwErr.UserErrors) != 1 || gwErr.UserErrors[0].Field[0] != "orderId" {
		t.Fatalf("user errors not passed through: %+v", gwErr.UserErrors)
	}
	if DomainCode(err) != pkgerrors.CodeRemoteUserError {
		t.Fatalf("unexpected domain code %s", DomainCode(err))
	}
}

func TestCancelOrderNotFoundUserError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"orderCancel":{"job":null,"orderCancelUserErrors":[{"field":["orderId"],"message":"Order does not exist","code":"NOT_FOUND"}]}}`)
	})

	_, err := client.CancelOrder(context.Background(), CancelOrderParams{OrderID: "1", Reason: enums.CancellationReasonOther})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateFulfillmentDefaultsTracking(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"fulfillmentCreateV2":{"fulfillment":{"id":"gid://shopify/Fulfillment/3","status":"SUCCESS"},"userErrors":[]}}`)
	})

	fulfillment, err := client.CreateFulfillment(context.Background(), CreateFulfillmentParams{
		FulfillmentOrderID: "gid://shopify/FulfillmentOrder/1",
		Tracking:           TrackingInfo{Number: "1Z"},
		NotifyCustomer:     false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fulfillment.ID != "gid://shopify/Fulfillment/3" {
		t.Fatalf("unexpected fulfillment %+v", fulfillment)
	}

	input := (*calls)[0].Variables["fulfillment"].(map[string]any)
	tracking := input["trackingInfo"].(map[string]any)
	if tracking["number"] != "1Z" || tracking["url"] != "" || tracking["company"] != "" {
		t.Fatalf("tracking should default to empty strings, got %+v", tracking)
	}
	if input["notifyCustomer"] != false {
		t.Fatalf("notify flag not forwarded: %+v", input)
	}
}

func TestProtocolFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{name: "throttled status", status: http.StatusTooManyRequests, body: `{}`, kind: KindThrottled},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, kind: KindProtocol},
		{name: "missing shop", status: http.StatusNotFound, body: `{}`, kind: KindNotFound},
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"Field 'x' doesn't exist","path":["query","x"]}]}`, kind: KindProtocol},
		{name: "graphql throttled", status: http.StatusOK, body: `{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`, kind: KindThrottled},
		{name: "bad json", status: http.StatusOK, body: `{"data":`, kind: KindProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.FetchLineItems(context.Background(), "1001")
			gwErr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected gateway error, got %v", err)
			}
			if gwErr.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tc.kind, gwErr.Kind, err)
			}
		})
	}
}

func TestGraphQLErrorsKeepFieldPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"bad","path":["order",0]}]}`)
	})
	_, err := client.FetchLineItems(context.Background(), "1001")
	gwErr, _ := AsError(err)
	if gwErr == nil || len(gwErr.GraphQLErrors) != 1 {
		t.Fatalf("expected graphql errors, got %v", err)
	}
	if strings.Join(gwErr.GraphQLErrors[0].Field, ".") != "order.0" {
		t.Fatalf("unexpected path %v", gwErr.GraphQLErrors[0].Field)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client, err := NewClient(Options{
		Shop:        "demo.myshopify.com",
		AccessToken: "x",
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Endpoint:    endpoint,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.BeginEdit(context.Background(), "1001")
	gwErr, ok := AsError(err)
	if !ok || gwErr.Kind != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if DomainCode(err) != pkgerrors.CodeRemoteProtocol {
		t.Fatalf("unexpected domain code %s", DomainCode(err))
	}
}

func TestUpsertOrderMetafield(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"metafieldsSet":{"metafields":[{"id":"gid://shopify/Metafield/1","namespace":"nodnod","key":"invoice","value":"INV-1","type":"single_line_text_field"}],"userErrors":[]}}`)
	})

	mf, err := client.UpsertOrderMetafield(context.Background(), MetafieldInput{OrderID: "1001", Namespace: "nodnod", Key: "invoice", Value: "INV-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mf.Value != "INV-1" {
		t.Fatalf("unexpected metafield %+v", mf)
	}
	input := (*calls)[0].Variables["metafields"].([]any)[0].(map[string]any)
	if input["ownerId"] != "gid://shopify/Order/1001" || input["type"] != defaultMetafieldType {
		t.Fatalf("unexpected metafield input %+v", input)
	}
}

func TestGetOrderMetafields(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"order":{"metafields":{"nodes":[{"id":"gid://shopify/Metafield/1","namespace":"nodnod","key":"invoice","value":"INV-1","type":"single_line_text_field"}]}}}`)
	})

	fields, err := client.GetOrderMetafields(context.Background(), "1001", "nodnod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "invoice" || fields[0].Value != "INV-1" {
		t.Fatalf("unexpected metafields %+v", fields)
	}
	vars := (*calls)[0].Variables
	if vars["orderId"] != "gid://shopify/Order/1001" || vars["namespace"] != "nodnod" {
		t.Fatalf("unexpected variables %+v", vars)
	}
}

func TestGetOrderMetafieldsMissingOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		writeData(w, `{"order":null}`)
	})

	_, err := client.GetOrderMetafields(context.Background(), "1001", "")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
