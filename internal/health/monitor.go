package health

import (
	"time"

	"trabajante/types"
)

// Monitor is the single home for error tracking, per-subsystem circuit
// breakers, and the watchdog gate of §4.7.
type Monitor struct {
	ring            *Ring
	breakers        map[string]*Breaker
	criticalUnacked bool
	pendingCritical []types.ErrorEvent
}

func NewMonitor() *Monitor {
	return &Monitor{ring: NewRing(), breakers: make(map[string]*Breaker)}
}

func (m *Monitor) breaker(component string) *Breaker {
	b, ok := m.breakers[component]
	if !ok {
		b = NewBreaker()
		m.breakers[component] = b
	}
	return b
}

// RecordError appends an event to the ring and feeds the named
// subsystem's breaker. Critical events are queued for an immediate
// diagnostics publish (§4.7) and set the unacknowledged flag that blocks
// the watchdog feed.
func (m *Monitor) RecordError(code int, severity Severity, component string, gpio *int, message string, now time.Time) {
	e := types.ErrorEvent{Code: code, Severity: string(severity), Component: component, GPIO: gpio, Message: message, TS: now.Unix()}
	m.ring.Append(e)
	if severity == SeverityError || severity == SeverityCritical {
		m.breaker(component).RecordFailure(now)
	}
	if severity == SeverityCritical {
		m.criticalUnacked = true
		m.pendingCritical = append(m.pendingCritical, e)
	}
}

// RecordSuccess clears the named subsystem's failure streak, the
// recovery signal the breaker needs to close again.
func (m *Monitor) RecordSuccess(component string) {
	m.breaker(component).RecordSuccess()
}

// AllowRecovery reports whether the named subsystem's breaker permits an
// attempt right now (closed, or its backoff has elapsed).
func (m *Monitor) AllowRecovery(component string, now time.Time) bool {
	return m.breaker(component).AllowAttempt(now)
}

// HasPendingCritical reports whether an immediate diagnostics publish is
// owed; the caller publishes .../system/diagnostics and then calls
// DrainCritical to acknowledge.
func (m *Monitor) HasPendingCritical() bool { return len(m.pendingCritical) > 0 }

// DrainCritical returns and clears the queued critical events, marking
// them acknowledged — the watchdog feed unblocks once there is nothing
// left pending.
func (m *Monitor) DrainCritical() []types.ErrorEvent {
	out := m.pendingCritical
	m.pendingCritical = nil
	m.criticalUnacked = false
	return out
}

// RecentForHeartbeat returns up to n of the most recent ring entries,
// oldest first. Nothing in the firmware calls it: no batched diagnostics
// publish happens at the heartbeat tick.
func (m *Monitor) RecentForHeartbeat(n int) []types.ErrorEvent { return m.ring.Recent(n) }

// AnyBreakerOpen reports whether any subsystem's breaker is currently
// open.
func (m *Monitor) AnyBreakerOpen() bool {
	for _, b := range m.breakers {
		if b.Open() {
			return true
		}
	}
	return false
}

// Ready is the overall readiness flag: no open breaker and no
// unacknowledged critical error.
func (m *Monitor) Ready() bool {
	return !m.AnyBreakerOpen() && !m.criticalUnacked
}

// FeedWatchdog reports whether the watchdog may be fed this tick. A
// genuinely hung device — one with any open breaker or an
// unacknowledged critical error — must NOT have its watchdog fed, so it
// reboots instead of falsely appearing live (§4.7).
func (m *Monitor) FeedWatchdog() bool { return m.Ready() }
