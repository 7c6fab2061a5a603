package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegistered(t *testing.T) {
	Reservations.WithLabelValues("reserved").Inc()
	if got := testutil.ToFloat64(Reservations.WithLabelValues("reserved")); got < 1 {
		t.Fatalf("expected counter to be incremented, got %v", got)
	}

	families, err := Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "eventflow_ledger_reservations_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("reservation counter missing from registry")
	}
}
