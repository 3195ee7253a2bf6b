package fulfillment

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

// Selector picks the fulfillment order a request applies to.
type Selector interface {
	Name() string
	Select(orders []shopify.FulfillmentOrder) (shopify.FulfillmentOrder, bool)
}

// NewSelector returns the policy configured by name.
func NewSelector(name string) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.SelectorFirst:
		return SelectFirst{}, nil
	case config.SelectorFirstOpen:
		return SelectFirstOpen{}, nil
	default:
		return nil, fmt.Errorf("unknown fulfillment selector %q", name)
	}
}

// SelectFirst always takes index 0. Orders split across locations or already
// partially fulfilled may need a different fulfillment order than the first.
type SelectFirst struct{}

func (SelectFirst) Name() string { return config.SelectorFirst }

func (SelectFirst) Select(orders []shopify.FulfillmentOrder) (shopify.FulfillmentOrder, bool) {
	if len(orders) == 0 {
		return shopify.FulfillmentOrder{}, false
	}
	return orders[0], true
}

// SelectFirstOpen takes the first fulfillment order that still has items to ship.
type SelectFirstOpen struct{}

func (SelectFirstOpen) Name() string { return config.SelectorFirstOpen }

func (SelectFirstOpen) Select(orders []shopify.FulfillmentOrder) (shopify.FulfillmentOrder, bool) {
	for _, fo := range orders {
		if fo.RemainingQuantity() > 0 {
			return fo, true
		}
	}
	return shopify.FulfillmentOrder{}, false
}
