package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/orderbridge/internal/orderlock"
	"github.com/angelmondragon/orderbridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/metrics"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

const workflowName = "cancel_order"

// Service cancels orders either whole or through a guarded edit session.
type Service interface {
	CancelOrder(ctx context.Context, gw Gateway, input CancelInput) (*CancelResult, error)
	ListLineItems(ctx context.Context, reader LineItemReader, orderID string) ([]shopify.LineItem, error)
}

type service struct {
	locker  orderlock.Locker
	applier Applier
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
}

// NewService wires the cancellation workflow. metrics may be nil.
func NewService(locker orderlock.Locker, applier Applier, workflowMetrics *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if locker == nil {
		return nil, fmt.Errorf("order locker required")
	}
	if applier == nil {
		return nil, fmt.Errorf("apply strategy required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		locker:  locker,
		applier: applier,
		metrics: workflowMetrics,
		logg:    logg,
	}, nil
}

// CancelOrder validates the request before any remote call, takes the order
// lock, then runs either the single cancel mutation or the edit session.
func (s *service) CancelOrder(ctx context.Context, gw Gateway, input CancelInput) (*CancelResult, error) {
	if gw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order gateway not configured")
	}
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, (&WorkflowError{Kind: KindMissingOrderID, Step: "validate"}).toDomain("order id is required")
	}
	reason, err := enums.ParseCancellationReason(input.Reason)
	if err != nil {
		return nil, (&WorkflowError{Kind: KindInvalidReason, Step: "validate", OrderID: orderID, Err: err}).toDomain(err.Error())
	}
	for _, item := range input.LineItems {
		if item.Quantity < 0 {
			wfErr := &WorkflowError{Kind: KindInvalidLineItem, Step: "validate", OrderID: orderID}
			return nil, wfErr.toDomain(fmt.Sprintf("quantity for sku %q must not be negative", item.SKU))
		}
	}

	ctx = s.logg.WithOrderID(ctx, orderID)
	// Plain and global ids name the same order and must share one lock.
	release, err := s.locker.Acquire(ctx, shopify.LegacyID(orderID))
	if err != nil {
		if errors.Is(err, orderlock.ErrHeld) {
			wfErr := &WorkflowError{Kind: KindLockUnavailable, Step: "lock", OrderID: orderID, Err: err}
			return nil, wfErr.toDomain("another cancellation is in progress for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire order lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release order lock", err)
		}
	}()

	started := time.Now()
	defer func() { s.metrics.ObserveDuration(workflowName, time.Since(started)) }()

	if len(input.LineItems) == 0 {
		return s.cancelWhole(ctx, gw, orderID, reason, input)
	}
	return s.cancelPartial(ctx, gw, orderID, reason, input)
}

func (s *service) cancelWhole(ctx context.Context, gw Gateway, orderID string, reason enums.CancellationReason, input CancelInput) (*CancelResult, error) {
	stepCtx := s.logg.WithStep(ctx, stepCancel)
	job, err := gw.CancelOrder(stepCtx, shopifyCancelParams(orderID, reason, input))
	s.metrics.ObserveStep(workflowName, stepCancel, err)
	if err != nil {
		wfErr := &WorkflowError{Kind: KindCancelFailed, Step: stepCancel, OrderID: orderID, Err: err}
		s.logg.Error(stepCtx, "order cancel failed", wfErr)
		return nil, wfErr.toDomain("order cancel failed")
	}

	s.logg.Info(s.logg.WithField(stepCtx, "reason", reason.String()), "order cancelled")
	result := &CancelResult{Mode: ModeFullCancel, OrderID: orderID}
	if job != nil {
		result.JobID = job.ID
	}
	return result, nil
}

func (s *service) cancelPartial(ctx context.Context, gw Gateway, orderID string, reason enums.CancellationReason, input CancelInput) (*CancelResult, error) {
	session := newEditSession(gw, s.applier, orderID)

	if wfErr := session.begin(s.logg.WithStep(ctx, stepBegin)); wfErr != nil {
		s.metrics.ObserveStep(workflowName, stepBegin, wfErr)
		return nil, s.fail(ctx, wfErr, "order edit could not be started")
	}
	s.metrics.ObserveStep(workflowName, stepBegin, nil)
	ctx = s.logg.WithField(ctx, "calculated_order_id", session.calculated.ID)

	if wfErr := session.match(input.LineItems); wfErr != nil {
		return nil, s.fail(ctx, wfErr, "no requested line items exist on the order")
	}
	if len(session.dropped) > 0 {
		s.logg.Info(s.logg.WithField(s.logg.WithStep(ctx, stepMatch), "ignored_skus", session.dropped), "ignoring skus not present on the order")
	}

	applyCtx := s.logg.WithField(s.logg.WithStep(ctx, stepApply), "strategy", s.applier.Name())
	if wfErr := session.apply(applyCtx); wfErr != nil {
		s.metrics.ObserveStep(workflowName, stepApply, wfErr)
		return nil, s.fail(ctx, wfErr, "line item update failed; edit left uncommitted")
	}
	s.metrics.ObserveStep(workflowName, stepApply, nil)

	if wfErr := session.commit(s.logg.WithStep(ctx, stepCommit), input.NotifyCustomer, reason.String()); wfErr != nil {
		s.metrics.ObserveStep(workflowName, stepCommit, wfErr)
		return nil, s.fail(ctx, wfErr, "order edit commit failed")
	}
	s.metrics.ObserveStep(workflowName, stepCommit, nil)

	s.logg.Info(s.logg.WithField(ctx, "updated_line_items", session.applied), "order edit committed")
	return &CancelResult{
		Mode:              ModePartialEdit,
		OrderID:           orderID,
		CalculatedOrderID: session.calculated.ID,
		UpdatedLineItems:  session.applied,
	}, nil
}

func (s *service) fail(ctx context.Context, wfErr *WorkflowError, message string) error {
	fields := map[string]any{"step": wfErr.Step, "kind": string(wfErr.Kind)}
	if wfErr.CalculatedOrderID != "" {
		fields["calculated_order_id"] = wfErr.CalculatedOrderID
	}
	if len(wfErr.Failed) > 0 {
		fields["failed_line_items"] = wfErr.Failed
	}
	s.logg.Error(s.logg.WithFields(ctx, fields), message, wfErr)
	return wfErr.toDomain(message)
}

func shopifyCancelParams(orderID string, reason enums.CancellationReason, input CancelInput) shopify.CancelOrderParams {
	return shopify.CancelOrderParams{
		OrderID:        orderID,
		Reason:         reason,
		Restock:        input.RestockItems,
		NotifyCustomer: input.NotifyCustomer,
	}
}

// ListLineItems returns the order's current line items so callers can pick SKUs.
func (s *service) ListLineItems(ctx context.Context, reader LineItemReader, orderID string) ([]shopify.LineItem, error) {
	if reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order gateway not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	items, err := reader.FetchLineItems(s.logg.WithOrderID(ctx, orderID), orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(shopify.DomainCode(err), err, "fetch line items")
	}
	return items, nil
}
