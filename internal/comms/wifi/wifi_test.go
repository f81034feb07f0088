package wifi

import (
	"errors"
	"testing"
	"time"

	"trabajante/internal/errcode"
)

type fakeDev struct {
	connectErr error
	connected  bool
	rssi       int
}

func (f *fakeDev) Connect(ssid, password string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	// Link-up is reported separately: tests set connected once the AP
	// has "accepted" the join.
	return nil
}
func (f *fakeDev) Connected() bool      { return f.connected }
func (f *fakeDev) Disconnect()          { f.connected = false }
func (f *fakeDev) RSSI() (int, error)   { return f.rssi, nil }

func TestTick_NoCredentials_NoOp(t *testing.T) {
	dev := &fakeDev{}
	m := NewManager(dev)
	if evs := m.Tick(time.Unix(0, 0)); evs != nil {
		t.Fatalf("expected no events with no credentials, got %v", evs)
	}
}

func TestTick_ConnectSuccess(t *testing.T) {
	dev := &fakeDev{}
	m := NewManager(dev)
	m.Configure("zelt", "secret")

	now := time.Unix(1000, 0)
	if evs := m.Tick(now); evs != nil {
		t.Fatalf("unexpected events on dial: %v", evs)
	}
	if m.Connected() {
		t.Fatalf("should not be connected until netdev reports link up")
	}
	dev.connected = true
	if evs := m.Tick(now.Add(time.Second)); evs != nil {
		t.Fatalf("unexpected events: %v", evs)
	}
	if !m.Connected() {
		t.Fatalf("expected connected state")
	}
}

func TestTick_ConnectFailedReportsErrorAndBacksOff(t *testing.T) {
	dev := &fakeDev{connectErr: errors.New("ap not found")}
	m := NewManager(dev)
	m.Configure("zelt", "secret")

	now := time.Unix(1000, 0)
	evs := m.Tick(now)
	if len(evs) != 1 || evs[0].Code != errcode.WiFiConnectFailed {
		t.Fatalf("expected WIFI_CONNECT_FAILED, got %v", evs)
	}
	if evs := m.Tick(now.Add(10 * time.Millisecond)); evs != nil {
		t.Fatalf("expected no retry before backoff elapses, got %v", evs)
	}
}

func TestTick_ConnectingTimeout(t *testing.T) {
	dev := &fakeDev{}
	m := NewManager(dev)
	m.Configure("zelt", "secret")

	start := time.Unix(1000, 0)
	m.Tick(start) // dials, enters StateConnecting

	evs := m.Tick(start.Add(16 * time.Second))
	if len(evs) != 1 || evs[0].Code != errcode.WiFiConnectTimeout {
		t.Fatalf("expected WIFI_CONNECT_TIMEOUT, got %v", evs)
	}
}
