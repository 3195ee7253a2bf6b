package orders

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderbridge/api/middleware"
	"github.com/angelmondragon/orderbridge/api/responses"
	"github.com/angelmondragon/orderbridge/api/validators"
	"github.com/angelmondragon/orderbridge/internal/fulfillment"
	internalorders "github.com/angelmondragon/orderbridge/internal/orders"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

// Gateway is everything the order routes need from the Admin API.
type Gateway interface {
	internalorders.Gateway
	internalorders.LineItemReader
	fulfillment.Gateway
}

// GatewayFactory builds an Admin API client for the shop resolved by middleware.
type GatewayFactory func(creds *sessions.Credentials) (Gateway, error)

// ShopifyGateways adapts a resolver into a GatewayFactory.
func ShopifyGateways(resolver interface {
	GatewayFor(creds *sessions.Credentials) (*shopify.Client, error)
}) GatewayFactory {
	return func(creds *sessions.Credentials) (Gateway, error) {
		return resolver.GatewayFor(creds)
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

type cancelResponse struct {
	Success           bool     `json:"success"`
	Mode              string   `json:"mode"`
	JobID             string   `json:"jobId,omitempty"`
	CalculatedOrderID string   `json:"calculatedOrderId,omitempty"`
	UpdatedLineItems  []string `json:"updatedLineItems,omitempty"`
}

type fulfillResponse struct {
	Success       bool   `json:"success"`
	FulfillmentID string `json:"fulfillmentId,omitempty"`
	Status        string `json:"status,omitempty"`
}

type lineItemResponse struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	VariantTitle    string `json:"variantTitle,omitempty"`
	Quantity        int    `json:"quantity"`
	CurrentQuantity int    `json:"currentQuantity"`
}

// Cancel cancels the order whole, or edits the listed SKUs' quantities when lineItems is non-empty.
func Cancel(svc internalorders.Service, gateways GatewayFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || gateways == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload, validators.AllowUnknownFields()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID := orderIDParam(r)
		warnOrderIDMismatch(r, logg, orderID, string(payload.OrderID))

		gw, err := gatewayFromRequest(r, gateways)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CancelOrder(r.Context(), gw, payload.toInput(orderID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cancelResponse{
			Success:           true,
			Mode:              string(result.Mode),
			JobID:             result.JobID,
			CalculatedOrderID: result.CalculatedOrderID,
			UpdatedLineItems:  result.UpdatedLineItems,
		})
	}
}

// Fulfill creates a fulfillment for the order's selected fulfillment order.
func Fulfill(svc fulfillment.Service, gateways GatewayFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || gateways == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		var payload fulfillRequest
		if err := validators.DecodeJSONBody(r, &payload, validators.AllowUnknownFields()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gw, err := gatewayFromRequest(r, gateways)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Fulfill(r.Context(), gw, payload.toInput(orderIDParam(r)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := fulfillResponse{Success: true}
		if created != nil {
			resp.FulfillmentID = created.ID
			resp.Status = created.Status
		}
		responses.WriteSuccess(w, resp)
	}
}

// LineItems lists the order's current line items.
func LineItems(svc internalorders.Service, gateways GatewayFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || gateways == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		gw, err := gatewayFromRequest(r, gateways)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListLineItems(r.Context(), gw, orderIDParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]lineItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, lineItemResponse{
				ID:              item.ID,
				SKU:             item.SKU,
				Name:            item.Name,
				VariantTitle:    item.VariantTitle,
				Quantity:        item.Quantity,
				CurrentQuantity: item.CurrentQuantity,
			})
		}
		responses.WriteSuccess(w, map[string]any{"lineItems": out})
	}
}

// maxLoggedBody bounds how much of a return request body is logged.
const maxLoggedBody = 8 << 10

// Return records the return request and acknowledges it. Nothing is changed remotely.
func Return(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logg != nil {
			body, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
			ctx := logg.WithOrderID(r.Context(), orderIDParam(r))
			ctx = logg.WithFields(ctx, map[string]any{
				"method":       r.Method,
				"query":        r.URL.RawQuery,
				"content_type": r.Header.Get("Content-Type"),
				"body":         string(bytes.TrimSpace(body)),
			})
			logg.Info(ctx, "order return requested")
		}
		responses.WriteSuccess(w, successResponse{Success: true})
	}
}

func orderIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "orderID"))
}

func gatewayFromRequest(r *http.Request, gateways GatewayFactory) (Gateway, error) {
	creds, ok := middleware.ShopFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no store header or session found")
	}
	gw, err := gateways(creds)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build admin client")
	}
	return gw, nil
}

// warnOrderIDMismatch logs a body orderId that names a different order than the path.
func warnOrderIDMismatch(r *http.Request, logg *logger.Logger, pathID, bodyID string) {
	bodyID = strings.TrimSpace(bodyID)
	if logg == nil || bodyID == "" || shopify.LegacyID(bodyID) == shopify.LegacyID(pathID) {
		return
	}
	ctx := logg.WithFields(r.Context(), map[string]any{"order_id": pathID, "body_order_id": bodyID})
	logg.Warn(ctx, "body orderId differs from path, using path")
}

// flexInt accepts a JSON number or a numeric string and truncates fractions
// toward zero, so 1.0, "2" and 2.7 read as 1, 2 and 2.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("quantity must be a number, got %s", string(data))
	}
	v = math.Trunc(v)
	if v < 0 {
		return fmt.Errorf("quantity must not be negative, got %s", string(data))
	}
	if v > math.MaxInt32 {
		return fmt.Errorf("quantity out of range, got %s", string(data))
	}
	*f = flexInt(v)
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		*f = flexString(unquoted)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*f = flexString(raw)
	return nil
}
