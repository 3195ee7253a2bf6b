package shopify

import "github.com/angelmondragon/orderbridge/pkg/enums"

// TrackingInfo is attached to a fulfillment. Empty fields are sent as "".
type TrackingInfo struct {
	Company string `json:"company"`
	Number  string `json:"number"`
	URL     string `json:"url"`
}

type FulfillmentOrderLineItem struct {
	ID                string
	RemainingQuantity int
	Name              string
	SKU               string
}

// FulfillmentOrder groups the line items assigned to one location.
type FulfillmentOrder struct {
	ID        string
	Status    string
	LineItems []FulfillmentOrderLineItem
}

// RemainingQuantity sums the unfulfilled quantity across the line items.
func (f FulfillmentOrder) RemainingQuantity() int {
	total := 0
	for _, item := range f.LineItems {
		total += item.RemainingQuantity
	}
	return total
}

type Fulfillment struct {
	ID     string
	Status string
}

type CreateFulfillmentParams struct {
	FulfillmentOrderID string
	Tracking           TrackingInfo
	NotifyCustomer     bool
}

type LineItem struct {
	ID              string
	SKU             string
	Name            string
	VariantTitle    string
	Quantity        int
	CurrentQuantity int
}

type CalculatedLineItem struct {
	ID       string
	SKU      string
	Quantity int
}

// CalculatedOrder is the draft opened by an edit session.
type CalculatedOrder struct {
	ID        string
	LineItems []CalculatedLineItem
}

type SetQuantityParams struct {
	CalculatedOrderID string
	LineItemID        string
	Quantity          int
	Restock           bool
}

type CommitEditParams struct {
	CalculatedOrderID string
	NotifyCustomer    bool
	StaffNote         string
}

type CommittedOrder struct {
	ID string
}

type CancelOrderParams struct {
	OrderID        string
	Reason         enums.CancellationReason
	Restock        bool
	NotifyCustomer bool
	Refund         bool
	StaffNote      string
}

// CancelJob is the asynchronous job the platform schedules for a cancellation.
type CancelJob struct {
	ID   string
	Done bool
}

type Metafield struct {
	ID        string
	Namespace string
	Key       string
	Value     string
	Type      string
}

type MetafieldInput struct {
	OrderID   string
	Namespace string
	Key       string
	Value     string
	Type      string
}
