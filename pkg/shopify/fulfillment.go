package shopify

import (
	"context"
	"strings"
)

const fulfillmentOrdersQuery = `
query orderFulfillmentOrders($orderId: ID!) {
  order(id: $orderId) {
    id
    fulfillmentOrders(first: 10) {
      nodes {
        id
        status
        lineItems(first: 50) {
          nodes {
            id
            remainingQuantity
            lineItem {
              name
              sku
            }
          }
        }
      }
    }
  }
}`

const fulfillmentCreateMutation = `
mutation fulfillmentCreate($fulfillment: FulfillmentV2Input!) {
  fulfillmentCreateV2(fulfillment: $fulfillment) {
    fulfillment {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`

// FetchFulfillmentOrders returns the order's fulfillment orders in platform order.
func (c *Client) FetchFulfillmentOrders(ctx context.Context, orderRef string) ([]FulfillmentOrder, error) {
	const op = "fetchFulfillmentOrders"
	orderGID := OrderGID(orderRef)
	if orderGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id is required"}
	}

	var data struct {
		Order *struct {
			FulfillmentOrders struct {
				Nodes []struct {
					ID        string `json:"id"`
					Status    string `json:"status"`
					LineItems struct {
						Nodes []struct {
							ID                string `json:"id"`
							RemainingQuantity int    `json:"remainingQuantity"`
							LineItem          struct {
								Name string `json:"name"`
								SKU  string `json:"sku"`
							} `json:"lineItem"`
						} `json:"nodes"`
					} `json:"lineItems"`
				} `json:"nodes"`
			} `json:"fulfillmentOrders"`
		} `json:"order"`
	}
	if err := c.execute(ctx, op, fulfillmentOrdersQuery, map[string]any{"orderId": orderGID}, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, c.fail(ctx, notFound(op, "order", orderGID))
	}

	orders := make([]FulfillmentOrder, 0, len(data.Order.FulfillmentOrders.Nodes))
	for _, node := range data.Order.FulfillmentOrders.Nodes {
		fo := FulfillmentOrder{
			ID:        node.ID,
			Status:    node.Status,
			LineItems: make([]FulfillmentOrderLineItem, 0, len(node.LineItems.Nodes)),
		}
		for _, item := range node.LineItems.Nodes {
			fo.LineItems = append(fo.LineItems, FulfillmentOrderLineItem{
				ID:                item.ID,
				RemainingQuantity: item.RemainingQuantity,
				Name:              item.LineItem.Name,
				SKU:               item.LineItem.SKU,
			})
		}
		orders = append(orders, fo)
	}
	return orders, nil
}

// CreateFulfillment fulfills every remaining item of one fulfillment order.
// A nil Fulfillment with a nil error means the platform returned none.
func (c *Client) CreateFulfillment(ctx context.Context, params CreateFulfillmentParams) (*Fulfillment, error) {
	const op = "createFulfillment"
	foGID := FulfillmentOrderGID(params.FulfillmentOrderID)
	if foGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "fulfillment order id is required"}
	}

	variables := map[string]any{
		"fulfillment": map[string]any{
			"lineItemsByFulfillmentOrder": []map[string]any{
				{"fulfillmentOrderId": foGID},
			},
			"trackingInfo": map[string]any{
				"number":  strings.TrimSpace(params.Tracking.Number),
				"url":     strings.TrimSpace(params.Tracking.URL),
				"company": strings.TrimSpace(params.Tracking.Company),
			},
			"notifyCustomer": params.NotifyCustomer,
		},
	}

	var data struct {
		FulfillmentCreateV2 struct {
			Fulfillment *struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"fulfillment"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"fulfillmentCreateV2"`
	}
	if err := c.execute(ctx, op, fulfillmentCreateMutation, variables, &data); err != nil {
		return nil, err
	}
	if err := c.check(ctx, op, data.FulfillmentCreateV2.UserErrors); err != nil {
		return nil, err
	}
	if data.FulfillmentCreateV2.Fulfillment == nil {
		return nil, nil
	}
	return &Fulfillment{
		ID:     data.FulfillmentCreateV2.Fulfillment.ID,
		Status: data.FulfillmentCreateV2.Fulfillment.Status,
	}, nil
}
