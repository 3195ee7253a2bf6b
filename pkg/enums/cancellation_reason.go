package enums

import (
	"fmt"
	"strings"
)

// CancellationReason is the closed set of reasons the commerce platform accepts for an order cancel.
type CancellationReason string

const (
	CancellationReasonCustomer  CancellationReason = "CUSTOMER"
	CancellationReasonDeclined  CancellationReason = "DECLINED"
	CancellationReasonFraud     CancellationReason = "FRAUD"
	CancellationReasonOther     CancellationReason = "OTHER"
	CancellationReasonInventory CancellationReason = "INVENTORY"
	CancellationReasonStaff     CancellationReason = "STAFF"
)

// DefaultCancellationReason applies when the caller omits a reason.
const DefaultCancellationReason = CancellationReasonOther

var validCancellationReasons = []CancellationReason{
	CancellationReasonCustomer,
	CancellationReasonDeclined,
	CancellationReasonFraud,
	CancellationReasonOther,
	CancellationReasonInventory,
	CancellationReasonStaff,
}

// String implements fmt.Stringer.
func (r CancellationReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known CancellationReason.
func (r CancellationReason) IsValid() bool {
	for _, candidate := range validCancellationReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseCancellationReason converts raw input into a CancellationReason.
// Empty input resolves to DefaultCancellationReason; matching is exact (upper case).
func ParseCancellationReason(value string) (CancellationReason, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DefaultCancellationReason, nil
	}
	for _, candidate := range validCancellationReasons {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancellation reason %q", value)
}
