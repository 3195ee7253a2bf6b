package orders

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

// Kind is the machine-checkable reason a cancellation failed.
type Kind string

const (
	KindInvalidReason        Kind = "InvalidReason"
	KindMissingOrderID       Kind = "MissingOrderID"
	KindInvalidLineItem      Kind = "InvalidLineItem"
	KindLockUnavailable      Kind = "LockUnavailable"
	KindCancelFailed         Kind = "CancelFailed"
	KindEditBeginFailed      Kind = "EditBeginFailed"
	KindNoMatchingLineItems  Kind = "NoMatchingLineItems"
	KindLineItemUpdateFailed Kind = "LineItemUpdateFailed"
	KindEditCommitFailed     Kind = "EditCommitFailed"
)

// WorkflowError describes where a cancellation stopped. CalculatedOrderID is
// set whenever an edit session was opened and left uncommitted.
type WorkflowError struct {
	Kind              Kind
	Step              string
	OrderID           string
	CalculatedOrderID string
	Applied           []string
	Failed            []string
	UserErrors        []shopify.UserError
	Err               error
}

func (e *WorkflowError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("order %s: %s at %s", e.OrderID, e.Kind, e.Step)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *WorkflowError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Partial reports whether the remote order may hold an uncommitted edit.
func (e *WorkflowError) Partial() bool {
	return e != nil && e.CalculatedOrderID != ""
}

// RetrySafe reports whether the caller may resubmit the same request as is.
func (e *WorkflowError) RetrySafe() bool {
	if e == nil || e.Partial() {
		return false
	}
	switch e.Kind {
	case KindInvalidReason, KindMissingOrderID, KindInvalidLineItem, KindLockUnavailable:
		return true
	}
	return false
}

func (e *WorkflowError) code() pkgerrors.Code {
	switch {
	case e.Partial():
		return pkgerrors.CodePartialWorkflow
	case e.Kind == KindInvalidReason, e.Kind == KindMissingOrderID, e.Kind == KindInvalidLineItem:
		return pkgerrors.CodeValidation
	case e.Kind == KindLockUnavailable:
		return pkgerrors.CodeConflict
	case e.Err != nil:
		if _, ok := shopify.AsError(e.Err); ok {
			return shopify.DomainCode(e.Err)
		}
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeRemoteProtocol
	}
}

func (e *WorkflowError) details() map[string]any {
	details := map[string]any{
		"kind":       string(e.Kind),
		"step":       e.Step,
		"order_id":   e.OrderID,
		"retry_safe": e.RetrySafe(),
	}
	if e.CalculatedOrderID != "" {
		details["calculated_order_id"] = e.CalculatedOrderID
	}
	if len(e.Applied) > 0 {
		details["applied_line_items"] = e.Applied
	}
	if len(e.Failed) > 0 {
		details["failed_line_items"] = e.Failed
	}
	if len(e.UserErrors) > 0 {
		details["user_errors"] = e.UserErrors
	}
	return details
}

// toDomain wraps the workflow error so both it and the typed service error
// are reachable through errors.As.
func (e *WorkflowError) toDomain(message string) *pkgerrors.Error {
	if gwErr, ok := shopify.AsError(e.Err); ok && len(e.UserErrors) == 0 {
		e.UserErrors = append(e.UserErrors, gwErr.UserErrors...)
		e.UserErrors = append(e.UserErrors, gwErr.GraphQLErrors...)
	}
	return pkgerrors.Wrap(e.code(), e, message).WithDetails(e.details())
}
