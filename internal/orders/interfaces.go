package orders

import (
	"context"

	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

// QuantitySetter issues one line-item quantity change inside an edit session.
type QuantitySetter interface {
	SetLineItemQuantity(ctx context.Context, params shopify.SetQuantityParams) error
}

// Gateway is the slice of the Admin API the cancellation workflow drives.
type Gateway interface {
	QuantitySetter
	CancelOrder(ctx context.Context, params shopify.CancelOrderParams) (*shopify.CancelJob, error)
	BeginEdit(ctx context.Context, orderRef string) (*shopify.CalculatedOrder, error)
	CommitEdit(ctx context.Context, params shopify.CommitEditParams) (*shopify.CommittedOrder, error)
}

// LineItemReader lists an order's current line items.
type LineItemReader interface {
	FetchLineItems(ctx context.Context, orderRef string) ([]shopify.LineItem, error)
}

var (
	_ Gateway        = (*shopify.Client)(nil)
	_ LineItemReader = (*shopify.Client)(nil)
)
