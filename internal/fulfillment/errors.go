package fulfillment

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
)

type Kind string

const (
	KindMissingOrderID      Kind = "MissingOrderID"
	KindFetchFailed         Kind = "FetchFulfillmentOrdersFailed"
	KindNoFulfillmentOrders Kind = "NoFulfillmentOrders"
	KindFulfillmentFailed   Kind = "FulfillmentFailed"
)

// Error reports which fulfillment step failed.
type Error struct {
	Kind               Kind
	Step               string
	OrderID            string
	FulfillmentOrderID string
	Err                error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("fulfill order %s: %s", e.OrderID, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) toDomain(message string) *pkgerrors.Error {
	code := pkgerrors.CodeRemoteProtocol
	switch {
	case e.Kind == KindMissingOrderID:
		code = pkgerrors.CodeValidation
	case e.Kind == KindNoFulfillmentOrders:
		code = pkgerrors.CodeNotFound
	case e.Err != nil:
		if _, ok := shopify.AsError(e.Err); ok {
			code = shopify.DomainCode(e.Err)
		}
	}

	details := map[string]any{
		"kind":       string(e.Kind),
		"step":       e.Step,
		"order_id":   e.OrderID,
		"retry_safe": e.Kind == KindMissingOrderID,
	}
	if e.FulfillmentOrderID != "" {
		details["fulfillment_order_id"] = e.FulfillmentOrderID
	}
	if gwErr, ok := shopify.AsError(e.Err); ok {
		if problems := append(append([]shopify.UserError{}, gwErr.UserErrors...), gwErr.GraphQLErrors...); len(problems) > 0 {
			details["user_errors"] = problems
		}
	}
	return pkgerrors.Wrap(code, e, message).WithDetails(details)
}
