package orders

import (
	"github.com/angelmondragon/orderbridge/internal/fulfillment"
	internalorders "github.com/angelmondragon/orderbridge/internal/orders"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

type cancelLineItem struct {
	SKU         string  `json:"sku"`
	Quantity    flexInt `json:"quantity"`
	RestockItem bool    `json:"restockItem"`
}

// cancelRequest ignores keys it does not declare; callers often echo back
// line items from GET line-items with their ids still attached.
type cancelRequest struct {
	// OrderID is informational. The path parameter is authoritative.
	OrderID        flexString       `json:"orderId"`
	Reason         string           `json:"reason"`
	RestockItems   bool             `json:"restockItems"`
	LineItems      []cancelLineItem `json:"lineItems" validate:"omitempty,dive"`
	NotifyCustomer *bool            `json:"notifyCustomer"`
}

// toInput applies inbound defaults: reason OTHER, notifyCustomer true when omitted.
func (c cancelRequest) toInput(orderID string) internalorders.CancelInput {
	reason := c.Reason
	if reason == "" {
		reason = "OTHER"
	}
	items := make([]internalorders.LineItemRequest, 0, len(c.LineItems))
	for _, item := range c.LineItems {
		items = append(items, internalorders.LineItemRequest{
			SKU:         item.SKU,
			Quantity:    int(item.Quantity),
			RestockItem: item.RestockItem,
		})
	}
	return internalorders.CancelInput{
		OrderID:        orderID,
		Reason:         reason,
		RestockItems:   c.RestockItems,
		LineItems:      items,
		NotifyCustomer: boolOrDefault(c.NotifyCustomer, true),
	}
}

type trackingInfo struct {
	Company string `json:"company"`
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
	URL     string `json:"url" validate:"omitempty,url"`
}

type fulfillRequest struct {
	NotifyCustomer *bool         `json:"notifyCustomer"`
	TrackingInfo   *trackingInfo `json:"trackingInfo"`
}

func (f fulfillRequest) toInput(orderID string) fulfillment.FulfillInput {
	input := fulfillment.FulfillInput{
		OrderID:        orderID,
		NotifyCustomer: boolOrDefault(f.NotifyCustomer, true),
	}
	if t := f.TrackingInfo; t != nil {
		company := t.Company
		if company == "" {
			company = t.Carrier
		}
		input.Tracking = shopify.TrackingInfo{Company: company, Number: t.Number, URL: t.URL}
	}
	return input
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
