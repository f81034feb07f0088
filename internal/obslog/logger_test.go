package obslog

import (
	"testing"
	"time"

	"trabajante/internal/health"
)

func TestErrorf_FeedsHealthMonitor(t *testing.T) {
	m := health.NewMonitor()
	l := New(m)
	now := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		l.Errorf("sensor:34", 1040, nil, now, "read failed: attempt %d", i)
	}
	if !m.AnyBreakerOpen() {
		t.Fatalf("expected repeated Errorf calls to trip the sensor breaker")
	}
}

func TestCriticalf_QueuesImmediateDiagnostics(t *testing.T) {
	m := health.NewMonitor()
	l := New(m)
	l.Criticalf("system", 4070, time.Unix(1000, 0), "watchdog near timeout")
	if !m.HasPendingCritical() {
		t.Fatalf("expected a pending critical diagnostics publish")
	}
}
