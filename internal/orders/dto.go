package orders

// LineItemRequest is the caller's intent for one SKU. It has no identity until
// matched against the calculated order.
type LineItemRequest struct {
	SKU         string
	Quantity    int
	RestockItem bool
}

// CancelInput carries a cancellation request after inbound defaults were applied.
// An empty Reason resolves to OTHER.
type CancelInput struct {
	OrderID        string
	Reason         string
	RestockItems   bool
	LineItems      []LineItemRequest
	NotifyCustomer bool
}

// Mode names the branch a cancellation took.
type Mode string

const (
	ModeFullCancel  Mode = "full_cancel"
	ModePartialEdit Mode = "partial_edit"
)

// CancelResult is returned only when the remote change fully succeeded.
type CancelResult struct {
	Mode              Mode
	OrderID           string
	JobID             string
	CalculatedOrderID string
	UpdatedLineItems  []string
}
