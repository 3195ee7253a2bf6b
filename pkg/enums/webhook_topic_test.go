package enums

import "testing"

func TestParseWebhookTopic(t *testing.T) {
	cases := map[string]WebhookTopic{
		"orders/create":                  WebhookTopicOrdersCreate,
		"ORDERS_CREATE":                  WebhookTopicOrdersCreate,
		"orders/paid":                    WebhookTopicOrdersPaid,
		"ORDERS_RISK_ASSESSMENT_CHANGED": WebhookTopicOrdersRiskAssessment,
	}
	for raw, want := range cases {
		got, err := ParseWebhookTopic(raw)
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
		if got != want {
			t.Fatalf("expected %q for %q, got %q", want, raw, got)
		}
	}

	if _, err := ParseWebhookTopic("products/update"); err == nil {
		t.Fatalf("expected unhandled topic to fail")
	}
}

func TestSyncKindIsValid(t *testing.T) {
	if !SyncKindOrderCreated.IsValid() || !SyncKindOrderPaid.IsValid() {
		t.Fatalf("expected known sync kinds to be valid")
	}
	if SyncKind("order_refunded").IsValid() {
		t.Fatalf("unknown sync kind should be invalid")
	}
}
