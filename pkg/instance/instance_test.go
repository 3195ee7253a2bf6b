package instance

import "testing"

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("ORDERBRIDGE_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	if got := ID("local"); got != "api-7" {
		t.Fatalf("expected api-7 got %s", got)
	}
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("ORDERBRIDGE_INSTANCE_ID", "")
	t.Setenv("DYNO", "worker.2")
	if got := ID("local"); got != "worker.2" {
		t.Fatalf("expected worker.2 got %s", got)
	}
}

func TestIDNeverEmpty(t *testing.T) {
	t.Setenv("ORDERBRIDGE_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if got := ID("local"); got == "" {
		t.Fatal("expected a non-empty id")
	}
}
