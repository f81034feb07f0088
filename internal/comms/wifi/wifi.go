// Package wifi implements the WiFi manager of spec §4.6: connects using
// credentials from the config namespace, backs off exponentially on
// failure, and reports WIFI_CONNECT_TIMEOUT / WIFI_CONNECT_FAILED on each
// failed attempt.
//
// Grounded on the backoffSeq/sleep pattern of the teacher's bridge
// service (services/bridge/bridge.go), but reshaped from a blocking
// goroutine loop into a non-blocking Tick(now) state machine — §5 rules
// out application-level preemption, so connect attempts and backoff must
// be driven by the cooperative main loop polling status, not by a
// goroutine parked on a sleep timer.
package wifi

import (
	"time"

	"trabajante/internal/errcode"
)

// NetDev is the board-level network surface: join an access point, query
// link state, and read signal strength. A tinygo build wires this to the
// board's netdev; a host build wires it to a fake for tests.
type NetDev interface {
	Connect(ssid, password string) error
	Connected() bool
	Disconnect()
	RSSI() (int, error)
}

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

const (
	minBackoff     = 1 * time.Second
	maxBackoff     = 60 * time.Second
	connectTimeout = 15 * time.Second
)

// Event is a status change worth surfacing to the health monitor (§4.7).
type Event struct {
	Code errcode.Code
	Msg  string
}

// Manager drives one NetDev through connect/backoff/reconnect. It never
// blocks: Tick is called every loop iteration and returns quickly.
type Manager struct {
	dev     NetDev
	ssid    string
	pass    string
	state   State
	backoff func() time.Duration
	nextAt  time.Time
	started time.Time
}

func NewManager(dev NetDev) *Manager {
	return &Manager{dev: dev, state: StateDisconnected, backoff: backoffSeq(minBackoff, maxBackoff)}
}

// Configure installs credentials and forces a reconnect on the next Tick.
func (m *Manager) Configure(ssid, password string) {
	m.ssid = ssid
	m.pass = password
	m.dev.Disconnect()
	m.state = StateDisconnected
	m.nextAt = time.Time{}
	m.backoff = backoffSeq(minBackoff, maxBackoff)
}

func (m *Manager) Connected() bool { return m.state == StateConnected }

func (m *Manager) RSSI() int {
	v, err := m.dev.RSSI()
	if err != nil {
		return 0
	}
	return v
}

// Tick advances the state machine by one cooperative-loop iteration. It
// returns any error events raised this tick (empty most ticks).
func (m *Manager) Tick(now time.Time) []Event {
	if m.ssid == "" {
		return nil
	}

	switch m.state {
	case StateConnected:
		if !m.dev.Connected() {
			m.state = StateDisconnected
			m.nextAt = now
		}
		return nil

	case StateDisconnected:
		if now.Before(m.nextAt) {
			return nil
		}
		if err := m.dev.Connect(m.ssid, m.pass); err != nil {
			delay := m.backoff()
			m.nextAt = now.Add(delay)
			return []Event{{Code: errcode.WiFiConnectFailed, Msg: err.Error()}}
		}
		m.state = StateConnecting
		m.started = now
		return nil

	case StateConnecting:
		if m.dev.Connected() {
			m.state = StateConnected
			m.backoff = backoffSeq(minBackoff, maxBackoff)
			return nil
		}
		if now.Sub(m.started) > connectTimeout {
			m.dev.Disconnect()
			m.state = StateDisconnected
			delay := m.backoff()
			m.nextAt = now.Add(delay)
			return []Event{{Code: errcode.WiFiConnectTimeout, Msg: "connect attempt exceeded 15s"}}
		}
		return nil
	}
	return nil
}

// backoffSeq produces a doubling delay sequence bounded by [min,max], the
// same shape as the teacher's link-supervision backoff.
func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}
