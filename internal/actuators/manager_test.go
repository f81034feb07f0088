package actuators

import (
	"testing"
	"time"

	"trabajante/types"
)

type fakeDriver struct {
	value      float64
	on         bool
	begun      bool
	ended      bool
	failSet    bool
}

func (f *fakeDriver) Begin(types.ActuatorConfig) error { f.begun = true; return nil }
func (f *fakeDriver) End()                             { f.ended = true }
func (f *fakeDriver) SetValue(v float64) error {
	if f.failSet {
		return errSet
	}
	f.value = v
	return nil
}
func (f *fakeDriver) SetBinary(on bool) error {
	if f.failSet {
		return errSet
	}
	f.on = on
	if on {
		f.value = 1
	} else {
		f.value = 0
	}
	return nil
}
func (f *fakeDriver) SafeDefault() error { return f.SetBinary(false) }

type setErr string

func (e setErr) Error() string { return string(e) }

const errSet = setErr("simulated set failure")

func registerFake(t *testing.T, typ string, drv *fakeDriver) {
	t.Helper()
	RegisterDriver(typ, func() Driver { return drv })
	t.Cleanup(func() { delete(factories, typ) })
}

func TestConfigure_UnknownTypeFails(t *testing.T) {
	m := NewManager()
	err := m.Configure(types.ActuatorConfig{GPIO: 5, ActuatorType: "mystery"})
	if err == nil {
		t.Fatalf("expected error for unknown actuator_type")
	}
}

func TestCommand_ONOFFToggle(t *testing.T) {
	m := NewManager()
	drv := &fakeDriver{}
	registerFake(t, "pump", drv)
	if err := m.Configure(types.ActuatorConfig{GPIO: 5, ActuatorType: "pump"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	now := time.Unix(1000, 0)

	resp, status := m.Command(5, types.ActuatorCommand{Command: "ON", Value: 1.0}, now)
	if !resp.Success || status == nil || status.Value != 1.0 {
		t.Fatalf("ON command failed: resp=%+v status=%+v", resp, status)
	}

	resp, status = m.Command(5, types.ActuatorCommand{Command: "OFF"}, now)
	if !resp.Success || status.Value != 0 {
		t.Fatalf("OFF command failed: resp=%+v status=%+v", resp, status)
	}

	resp, status = m.Command(5, types.ActuatorCommand{Command: "TOGGLE"}, now)
	if !resp.Success || status == nil || status.Value != 1.0 || drv.value != 1.0 {
		t.Fatalf("TOGGLE from off failed: resp=%+v status=%+v", resp, status)
	}
}

func TestCommand_RuntimeExceededTripsEmergency(t *testing.T) {
	m := NewManager()
	drv := &fakeDriver{}
	registerFake(t, "pump", drv)
	if err := m.Configure(types.ActuatorConfig{GPIO: 5, ActuatorType: "pump", MaxRuntimeSeconds: 3}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	start := time.Unix(1000, 0)
	if resp, _ := m.Command(5, types.ActuatorCommand{Command: "ON", Value: 1.0}, start); !resp.Success {
		t.Fatalf("ON command failed: %+v", resp)
	}

	if alerts := m.Tick(start.Add(2 * time.Second)); len(alerts) != 0 {
		t.Fatalf("expected no alert before the runtime bound, got %v", alerts)
	}
	alerts := m.Tick(start.Add(4 * time.Second))
	if len(alerts) != 1 || alerts[0].Reason != "RUNTIME_EXCEEDED" {
		t.Fatalf("expected one RUNTIME_EXCEEDED alert, got %v", alerts)
	}
	if drv.value != 0 {
		t.Fatalf("expected driver forced to safe default, got value=%v", drv.value)
	}

	resp, _ := m.Command(5, types.ActuatorCommand{Command: "ON"}, start)
	if resp.Success {
		t.Fatalf("expected command while ACTIVE to be rejected")
	}
}

func TestCommand_ClearReturnsToNormal(t *testing.T) {
	m := NewManager()
	drv := &fakeDriver{}
	registerFake(t, "pump", drv)
	_ = m.Configure(types.ActuatorConfig{GPIO: 5, ActuatorType: "pump", MaxRuntimeSeconds: 1})

	start := time.Unix(1000, 0)
	_, _ = m.Command(5, types.ActuatorCommand{Command: "ON", Value: 1.0}, start)
	_ = m.Tick(start.Add(5 * time.Second)) // trips emergency -> ACTIVE

	resp, status := m.Command(5, types.ActuatorCommand{Command: "CLEAR"}, start.Add(6*time.Second))
	if !resp.Success || status == nil || status.State != string(StateNormal) {
		t.Fatalf("expected CLEAR to return to NORMAL, got resp=%+v status=%+v", resp, status)
	}
}
