package shopify

import (
	"context"
	"strings"
)

const defaultMetafieldType = "single_line_text_field"

const metafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      id
      namespace
      key
      value
      type
    }
    userErrors {
      field
      message
      code
    }
  }
}`

const orderMetafieldsQuery = `
query orderMetafields($orderId: ID!, $namespace: String) {
  order(id: $orderId) {
    metafields(first: 20, namespace: $namespace) {
      nodes {
        id
        namespace
        key
        value
        type
      }
    }
  }
}`

// UpsertOrderMetafield creates or replaces one metafield on an order.
func (c *Client) UpsertOrderMetafield(ctx context.Context, input MetafieldInput) (*Metafield, error) {
	const op = "metafieldsSet"
	orderGID := OrderGID(input.OrderID)
	if orderGID == "" || strings.TrimSpace(input.Namespace) == "" || strings.TrimSpace(input.Key) == "" || input.Value == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id, namespace, key and value are required"}
	}
	metafieldType := strings.TrimSpace(input.Type)
	if metafieldType == "" {
		metafieldType = defaultMetafieldType
	}

	variables := map[string]any{
		"metafields": []map[string]any{{
			"ownerId":   orderGID,
			"namespace": input.Namespace,
			"key":       input.Key,
			"value":     input.Value,
			"type":      metafieldType,
		}},
	}
	var data struct {
		MetafieldsSet struct {
			Metafields []metafieldNode `json:"metafields"`
			UserErrors []UserError     `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := c.execute(ctx, op, metafieldsSetMutation, variables, &data); err != nil {
		return nil, err
	}
	if err := c.check(ctx, op, data.MetafieldsSet.UserErrors); err != nil {
		return nil, err
	}
	if len(data.MetafieldsSet.Metafields) == 0 {
		return nil, c.fail(ctx, &Error{Kind: KindProtocol, Operation: op, Message: "no metafield returned"})
	}
	mf := data.MetafieldsSet.Metafields[0].toMetafield()
	return &mf, nil
}

// GetOrderMetafields lists an order's metafields in namespace.
func (c *Client) GetOrderMetafields(ctx context.Context, orderRef, namespace string) ([]Metafield, error) {
	const op = "orderMetafields"
	orderGID := OrderGID(orderRef)
	if orderGID == "" {
		return nil, &Error{Kind: KindProtocol, Operation: op, Message: "order id is required"}
	}

	variables := map[string]any{"orderId": orderGID}
	if ns := strings.TrimSpace(namespace); ns != "" {
		variables["namespace"] = ns
	}
	var data struct {
		Order *struct {
			Metafields struct {
				Nodes []metafieldNode `json:"nodes"`
			} `json:"metafields"`
		} `json:"order"`
	}
	if err := c.execute(ctx, op, orderMetafieldsQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, c.fail(ctx, notFound(op, "order", orderGID))
	}

	out := make([]Metafield, 0, len(data.Order.Metafields.Nodes))
	for _, node := range data.Order.Metafields.Nodes {
		out = append(out, node.toMetafield())
	}
	return out, nil
}

type metafieldNode struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

func (n metafieldNode) toMetafield() Metafield {
	return Metafield{ID: n.ID, Namespace: n.Namespace, Key: n.Key, Value: n.Value, Type: n.Type}
}
