package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

// State is the lifecycle position of an edit session.
type State string

const (
	StateIdle         State = "Idle"
	StateSessionOpen  State = "SessionOpen"
	StateItemsUpdated State = "ItemsUpdated"
	StateCommitted    State = "Committed"
	StateAborted      State = "Aborted"
)

const (
	stepCancel = "cancel"
	stepBegin  = "begin"
	stepMatch  = "match"
	stepApply  = "apply"
	stepCommit = "commit"
)

var allowedTransitions = map[State][]State{
	StateIdle:         {StateSessionOpen, StateAborted},
	StateSessionOpen:  {StateItemsUpdated, StateAborted},
	StateItemsUpdated: {StateCommitted, StateAborted},
}

// editSession drives begin, match, apply and commit for one order. It is
// single use and not safe for concurrent callers.
type editSession struct {
	gw         Gateway
	applier    Applier
	orderID    string
	state      State
	calculated *shopify.CalculatedOrder
	matched    []MatchedItem
	dropped    []string
	applied    []string
}

func newEditSession(gw Gateway, applier Applier, orderID string) *editSession {
	return &editSession{gw: gw, applier: applier, orderID: orderID, state: StateIdle}
}

func (s *editSession) State() State {
	return s.state
}

func (s *editSession) transition(to State) {
	for _, allowed := range allowedTransitions[s.state] {
		if allowed == to {
			s.state = to
			return
		}
	}
	panic(fmt.Sprintf("orders: illegal edit session transition %s -> %s", s.state, to))
}

// abort moves the session to Aborted and describes the failure.
func (s *editSession) abort(kind Kind, step string, err error) *WorkflowError {
	s.transition(StateAborted)
	wfErr := &WorkflowError{
		Kind:    kind,
		Step:    step,
		OrderID: s.orderID,
		Applied: s.applied,
		Err:     err,
	}
	if s.calculated != nil {
		wfErr.CalculatedOrderID = s.calculated.ID
	}
	return wfErr
}

func (s *editSession) begin(ctx context.Context) *WorkflowError {
	calculated, err := s.gw.BeginEdit(ctx, s.orderID)
	if err != nil {
		return s.abort(KindEditBeginFailed, stepBegin, err)
	}
	if calculated == nil || strings.TrimSpace(calculated.ID) == "" {
		return s.abort(KindEditBeginFailed, stepBegin, errors.New("no calculated order returned"))
	}
	s.calculated = calculated
	s.transition(StateSessionOpen)
	return nil
}

// match resolves requests to the line item ids captured at begin. The first
// calculated item with an equal SKU wins; a later request for the same SKU
// replaces an earlier one. Unmatched SKUs are dropped.
func (s *editSession) match(requests []LineItemRequest) *WorkflowError {
	byID := make(map[string]int, len(requests))
	for _, req := range requests {
		sku := strings.TrimSpace(req.SKU)
		lineItemID := s.lineItemIDForSKU(sku)
		if lineItemID == "" {
			s.dropped = append(s.dropped, sku)
			continue
		}
		item := MatchedItem{LineItemID: lineItemID, SKU: sku, Quantity: req.Quantity, Restock: req.RestockItem}
		if idx, seen := byID[lineItemID]; seen {
			s.matched[idx] = item
			continue
		}
		byID[lineItemID] = len(s.matched)
		s.matched = append(s.matched, item)
	}
	if len(s.matched) == 0 {
		return s.abort(KindNoMatchingLineItems, stepMatch, fmt.Errorf("none of %d requested skus exist on the calculated order", len(requests)))
	}
	return nil
}

func (s *editSession) lineItemIDForSKU(sku string) string {
	if sku == "" {
		return ""
	}
	for _, item := range s.calculated.LineItems {
		if item.SKU == sku {
			return item.ID
		}
	}
	return ""
}

func (s *editSession) apply(ctx context.Context) *WorkflowError {
	result := s.applier.Apply(ctx, s.gw, s.calculated.ID, s.matched)
	s.applied = result.Applied
	if result.Err != nil {
		wfErr := s.abort(KindLineItemUpdateFailed, stepApply, result.Err)
		wfErr.Failed = result.Failed
		return wfErr
	}
	s.transition(StateItemsUpdated)
	return nil
}

func (s *editSession) commit(ctx context.Context, notifyCustomer bool, staffNote string) *WorkflowError {
	committed, err := s.gw.CommitEdit(ctx, shopify.CommitEditParams{
		CalculatedOrderID: s.calculated.ID,
		NotifyCustomer:    notifyCustomer,
		StaffNote:         staffNote,
	})
	if err != nil {
		return s.abort(KindEditCommitFailed, stepCommit, err)
	}
	if committed == nil {
		return s.abort(KindEditCommitFailed, stepCommit, errors.New("commit returned no order"))
	}
	s.transition(StateCommitted)
	return nil
}
