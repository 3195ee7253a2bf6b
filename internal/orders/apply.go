package orders

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/orderbridge/pkg/config"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

const defaultConcurrentUpdates = 8

// MatchedItem is a LineItemRequest resolved to a calculated line item id.
type MatchedItem struct {
	LineItemID string
	SKU        string
	Quantity   int
	Restock    bool
}

// ApplyResult lists the line item ids that were updated and the ones that
// failed. Items after a sequential failure appear in neither list.
type ApplyResult struct {
	Applied []string
	Failed  []string
	Err     error
}

// Applier issues the quantity updates of one edit session. Neither strategy
// undoes applied updates: the edit stays uncommitted and the live order is
// unchanged until commit.
type Applier interface {
	Name() string
	Apply(ctx context.Context, gw QuantitySetter, calculatedOrderID string, items []MatchedItem) ApplyResult
}

// NewApplier returns the strategy configured by name.
func NewApplier(name string) (Applier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.ApplyStrategySequential:
		return SequentialApplier{}, nil
	case config.ApplyStrategyConcurrent:
		return ConcurrentApplier{Limit: defaultConcurrentUpdates}, nil
	default:
		return nil, fmt.Errorf("unknown apply strategy %q", name)
	}
}

// SequentialApplier updates items in request order and stops at the first failure.
type SequentialApplier struct{}

func (SequentialApplier) Name() string { return config.ApplyStrategySequential }

func (SequentialApplier) Apply(ctx context.Context, gw QuantitySetter, calculatedOrderID string, items []MatchedItem) ApplyResult {
	result := ApplyResult{Applied: make([]string, 0, len(items))}
	for _, item := range items {
		if err := gw.SetLineItemQuantity(ctx, setQuantityParams(calculatedOrderID, item)); err != nil {
			result.Failed = []string{item.LineItemID}
			result.Err = err
			return result
		}
		result.Applied = append(result.Applied, item.LineItemID)
	}
	return result
}

// ConcurrentApplier fans updates out and waits for all of them. Every item is
// attempted; all failures are combined into Err.
type ConcurrentApplier struct {
	Limit int
}

func (ConcurrentApplier) Name() string { return config.ApplyStrategyConcurrent }

func (a ConcurrentApplier) Apply(ctx context.Context, gw QuantitySetter, calculatedOrderID string, items []MatchedItem) ApplyResult {
	outcomes := make([]error, len(items))

	var g errgroup.Group
	if a.Limit > 0 {
		g.SetLimit(a.Limit)
	}
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = gw.SetLineItemQuantity(ctx, setQuantityParams(calculatedOrderID, item))
			return outcomes[i]
		})
	}
	_ = g.Wait()

	result := ApplyResult{Applied: make([]string, 0, len(items))}
	for i, item := range items {
		if outcomes[i] != nil {
			result.Failed = append(result.Failed, item.LineItemID)
			result.Err = multierr.Append(result.Err, outcomes[i])
			continue
		}
		result.Applied = append(result.Applied, item.LineItemID)
	}
	return result
}

func setQuantityParams(calculatedOrderID string, item MatchedItem) shopify.SetQuantityParams {
	return shopify.SetQuantityParams{
		CalculatedOrderID: calculatedOrderID,
		LineItemID:        item.LineItemID,
		Quantity:          item.Quantity,
		Restock:           item.Restock,
	}
}
