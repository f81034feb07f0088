package health

import "time"

// breakerState mirrors the classic closed/open/half-open circuit breaker
// shape, applied per subsystem (WiFi, MQTT, each sensor, each actuator).
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

const breakerThreshold = 5

// Breaker tracks consecutive failures for one subsystem and gates
// recovery attempts behind an increasing backoff (§4.7).
type Breaker struct {
	state        breakerState
	consecutive  int
	nextAttempt  time.Time
	backoff      time.Duration
	maxBackoff   time.Duration
}

func NewBreaker() *Breaker {
	return &Breaker{backoff: time.Second, maxBackoff: 2 * time.Minute}
}

// RecordFailure registers one failure; after breakerThreshold consecutive
// failures the breaker opens.
func (b *Breaker) RecordFailure(now time.Time) {
	b.consecutive++
	if b.consecutive >= breakerThreshold {
		b.state = breakerOpen
		b.nextAttempt = now.Add(b.backoff)
		b.backoff *= 2
		if b.backoff > b.maxBackoff {
			b.backoff = b.maxBackoff
		}
	}
}

// RecordSuccess closes the breaker and resets its backoff.
func (b *Breaker) RecordSuccess() {
	b.state = breakerClosed
	b.consecutive = 0
	b.backoff = time.Second
}

// AllowAttempt reports whether a recovery attempt may proceed now: the
// breaker is closed, or it is open but its backoff has elapsed (moving it
// to half-open for the duration of that one attempt).
func (b *Breaker) AllowAttempt(now time.Time) bool {
	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if !now.Before(b.nextAttempt) {
			b.state = breakerHalfOpen
			return true
		}
		return false
	case breakerHalfOpen:
		return true
	}
	return false
}

func (b *Breaker) Open() bool { return b.state == breakerOpen }
