package health

import (
	"testing"
	"time"

	"trabajante/types"
)

func TestRing_WrapsAfterCapacity(t *testing.T) {
	r := NewRing()
	base := time.Unix(1000, 0)
	for i := 0; i < ringCapacity+10; i++ {
		r.Append(types.ErrorEvent{Code: 1040, Severity: "error", Component: "sensor", TS: base.Unix() + int64(i)})
	}
	if r.Len() != ringCapacity {
		t.Fatalf("expected ring capped at %d, got %d", ringCapacity, r.Len())
	}
	recent := r.Recent(1)
	if recent[0].TS != base.Unix()+int64(ringCapacity+9) {
		t.Fatalf("expected most recent entry retained, got %+v", recent[0])
	}
}

func TestMonitor_BreakerOpensAfterThreshold(t *testing.T) {
	m := NewMonitor()
	now := time.Unix(1000, 0)
	for i := 0; i < breakerThreshold; i++ {
		m.RecordError(1040, SeverityError, "sensor:34", nil, "read failed", now)
	}
	if !m.AnyBreakerOpen() {
		t.Fatalf("expected breaker open after threshold failures")
	}
	if m.Ready() {
		t.Fatalf("expected monitor not ready while breaker open")
	}
}

func TestMonitor_CriticalBlocksWatchdogUntilDrained(t *testing.T) {
	m := NewMonitor()
	now := time.Unix(1000, 0)
	m.RecordError(4070, SeverityCritical, "system", nil, "watchdog near timeout", now)

	if m.FeedWatchdog() {
		t.Fatalf("expected watchdog gated while critical unacknowledged")
	}
	if !m.HasPendingCritical() {
		t.Fatalf("expected a pending critical diagnostics publish")
	}
	_ = m.DrainCritical()
	if !m.FeedWatchdog() {
		t.Fatalf("expected watchdog feed to resume after drain")
	}
}

func TestMonitor_RecordSuccessClosesBreaker(t *testing.T) {
	m := NewMonitor()
	now := time.Unix(1000, 0)
	for i := 0; i < breakerThreshold; i++ {
		m.RecordError(3003, SeverityError, "wifi", nil, "connect failed", now)
	}
	if !m.AnyBreakerOpen() {
		t.Fatalf("expected breaker open")
	}
	m.RecordSuccess("wifi")
	if m.AnyBreakerOpen() {
		t.Fatalf("expected breaker closed after success")
	}
}
