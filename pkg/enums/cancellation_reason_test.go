package enums

import "testing"

func TestParseCancellationReason(t *testing.T) {
	for _, raw := range []string{"CUSTOMER", "DECLINED", "FRAUD", "OTHER", "INVENTORY", "STAFF"} {
		got, err := ParseCancellationReason(raw)
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
		if got.String() != raw || !got.IsValid() {
			t.Fatalf("unexpected reason %q for %q", got, raw)
		}
	}

	got, err := ParseCancellationReason("  ")
	if err != nil || got != CancellationReasonOther {
		t.Fatalf("expected blank reason to default to OTHER, got %q err=%v", got, err)
	}

	for _, raw := range []string{"fraud", "REFUND", "CUSTOMER_REQUEST"} {
		if _, err := ParseCancellationReason(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}

	if CancellationReason("NOPE").IsValid() {
		t.Fatalf("unknown reason should be invalid")
	}
}
