package shopify

import (
	"context"
	"strings"
)

const orderLineItemsQuery = `
query orderLineItems($orderId: ID!) {
  order(id: $orderId) {
    id
    lineItems(first: 100) {
      nodes {
        id
        sku
        name
        variantTitle
        quantity
        currentQuantity
      }
    }
  }
}`

const orderEditBeginMutation = `
mutation orderEditBegin($id: ID!) {
  orderEditBegin(id: $id) {
    calculatedOrder {
      id
      lineItems(first: 100) {
        nodes {
          id
          sku
          quantity
        }
      }
    }
    userErrors {
      field
      message
    }
  }
}`

const orderEditSetQuantityMutation = `
mutation orderEditSetQuantity($id: ID!, $lineItemId: ID!, $quantity: Int!, $restock: Boolean) {
  orderEditSetQuantity(id: $id, lineItemId: $lineItemId, quantity: $quantity, restock: $restock) {
    calculatedLineItem {
      id
      quantity
    }
    userErrors {
      field
      message
    }
  }
}`

const orderEditCommitMutation = `
mutation orderEditCommit($id: ID!, $notifyCustomer: Boolean, $staffNote: String) {
  orderEditCommit(id: $id, notifyCustomer: $notifyCustomer, staffNote: $staffNote) {
    order {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

const orderCancelMutation = `
mutation orderCancel($orderId: ID!, $reason: OrderCancelReason!, $refund: Boolean!, $restock: Boolean!, $notifyCustomer: Boolean, $staffNote: String) {
  orderCancel(orderId: $orderId, reason: $reason, refund: $refund, restock: $restock, notifyCustomer: $notifyCustomer, staffNote: $staffNote) {
    job {
      id
      done
    }
    orderCancelUserErrors {
      field
      message
      code
    }
  }
}`

// FetchLineItems returns the order's current line items.
func (c *Client) FetchLineItems(ctx context.Context, orderRef string) ([]LineItem, error) {
	const op = "fetchLineItems"
	orderGID := OrderGID(orderRef)
	if orderGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id is required"}
	}

	var data struct {
		Order *struct {
			LineItems struct {
				Nodes []struct {
					ID              string `json:"id"`
					SKU             string `json:"sku"`
					Name            string `json:"name"`
					VariantTitle    string `json:"variantTitle"`
					Quantity        int    `json:"quantity"`
					CurrentQuantity int    `json:"currentQuantity"`
				} `json:"nodes"`
			} `json:"lineItems"`
		} `json:"order"`
	}
	if err := c.execute(ctx, op, orderLineItemsQuery, map[string]any{"orderId": orderGID}, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, c.fail(ctx, notFound(op, "order", orderGID))
	}

	items := make([]LineItem, 0, len(data.Order.LineItems.Nodes))
	for _, node := range data.Order.LineItems.Nodes {
		items = append(items, LineItem{
			ID:              node.ID,
			SKU:             node.SKU,
			Name:            node.Name,
			VariantTitle:    node.VariantTitle,
			Quantity:        node.Quantity,
			CurrentQuantity: node.CurrentQuantity,
		})
	}
	return items, nil
}

// BeginEdit opens an edit session. A nil CalculatedOrder with a nil error
// means the platform returned none.
func (c *Client) BeginEdit(ctx context.Context, orderRef string) (*CalculatedOrder, error) {
	const op = "orderEditBegin"
	orderGID := OrderGID(orderRef)
	if orderGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id is required"}
	}

	var data struct {
		OrderEditBegin struct {
			CalculatedOrder *struct {
				ID        string `json:"id"`
				LineItems struct {
					Nodes []struct {
						ID       string `json:"id"`
						SKU      string `json:"sku"`
						Quantity int    `json:"quantity"`
					} `json:"nodes"`
				} `json:"lineItems"`
			} `json:"calculatedOrder"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"orderEditBegin"`
	}
	if err := c.execute(ctx, op, orderEditBeginMutation, map[string]any{"id": orderGID}, &data); err != nil {
		return nil, err
	}
	if err := c.check(ctx, op, data.OrderEditBegin.UserErrors); err != nil {
		return nil, err
	}
	raw := data.OrderEditBegin.CalculatedOrder
	if raw == nil {
		return nil, nil
	}

	calculated := &CalculatedOrder{
		ID:        raw.ID,
		LineItems: make([]CalculatedLineItem, 0, len(raw.LineItems.Nodes)),
	}
	for _, node := range raw.LineItems.Nodes {
		calculated.LineItems = append(calculated.LineItems, CalculatedLineItem{
			ID:       node.ID,
			SKU:      node.SKU,
			Quantity: node.Quantity,
		})
	}
	return calculated, nil
}

// SetLineItemQuantity changes one line item inside an open edit session.
func (c *Client) SetLineItemQuantity(ctx context.Context, params SetQuantityParams) error {
	const op = "orderEditSetQuantity"
	calculatedGID := CalculatedOrderGID(params.CalculatedOrderID)
	lineItemGID := CalculatedLineItemGID(params.LineItemID)
	if calculatedGID == "" || lineItemGID == "" {
		return &Error{Kind: KindProtocol, Operation: op, Message: "calculated order id and line item id are required"}
	}
	if params.Quantity < 0 {
		return &Error{Kind: KindProtocol, Operation: op, Message: "quantity must not be negative"}
	}

	variables := map[string]any{
		"id":         calculatedGID,
		"lineItemId": lineItemGID,
		"quantity":   params.Quantity,
		"restock":    params.Restock,
	}
	var data struct {
		OrderEditSetQuantity struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"orderEditSetQuantity"`
	}
	if err := c.execute(ctx, op, orderEditSetQuantityMutation, variables, &data); err != nil {
		return err
	}
	return c.check(ctx, op, data.OrderEditSetQuantity.UserErrors)
}

// CommitEdit applies the calculated order to the live order.
func (c *Client) CommitEdit(ctx context.Context, params CommitEditParams) (*CommittedOrder, error) {
	const op = "orderEditCommit"
	calculatedGID := CalculatedOrderGID(params.CalculatedOrderID)
	if calculatedGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "calculated order id is required"}
	}

	variables := map[string]any{
		"id":             calculatedGID,
		"notifyCustomer": params.NotifyCustomer,
	}
	if note := strings.TrimSpace(params.StaffNote); note != "" {
		variables["staffNote"] = note
	}

	var data struct {
		OrderEditCommit struct {
			Order *struct {
				ID string `json:"id"`
			} `json:"order"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"orderEditCommit"`
	}
	if err := c.execute(ctx, op, orderEditCommitMutation, variables, &data); err != nil {
		return nil, err
	}
	if err := c.check(ctx, op, data.OrderEditCommit.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderEditCommit.Order == nil {
		return nil, nil
	}
	return &CommittedOrder{ID: data.OrderEditCommit.Order.ID}, nil
}

// CancelOrder cancels the whole order in one mutation.
func (c *Client) CancelOrder(ctx context.Context, params CancelOrderParams) (*CancelJob, error) {
	const op = "orderCancel"
	orderGID := OrderGID(params.OrderID)
	if orderGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id is required"}
	}
	if !params.Reason.IsValid() {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "invalid cancellation reason " + params.Reason.String()}
	}

	variables := map[string]any{
		"orderId":        orderGID,
		"reason":         params.Reason.String(),
		"refund":         params.Refund,
		"restock":        params.Restock,
		"notifyCustomer": params.NotifyCustomer,
	}
	if note := strings.TrimSpace(params.StaffNote); note != "" {
		variables["staffNote"] = note
	}

	var data struct {
		OrderCancel struct {
			Job *struct {
				ID   string `json:"id"`
				Done bool   `json:"done"`
			} `json:"job"`
			UserErrors []UserError `json:"orderCancelUserErrors"`
		} `json:"orderCancel"`
	}
	if err := c.execute(ctx, op, orderCancelMutation, variables, &data); err != nil {
		return nil, err
	}
	if err := c.check(ctx, op, data.OrderCancel.UserErrors); err != nil {
		return nil, err
	}
	job := &CancelJob{}
	if data.OrderCancel.Job != nil {
		job.ID = data.OrderCancel.Job.ID
		job.Done = data.OrderCancel.Job.Done
	}
	return job, nil
}
