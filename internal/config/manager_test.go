package config

import (
	"testing"
	"time"

	"trabajante/internal/errcode"
	"trabajante/types"
)

func newTestManager(t *testing.T) (*Manager, *MemBackend) {
	t.Helper()
	be := NewMemBackend()
	m := New(NewStore(be))
	if err := m.Load(); err != nil {
		t.Fatalf("Load on empty store: %v", err)
	}
	return m, be
}

func TestLoad_EmptyStoreBootsWithoutError(t *testing.T) {
	m, _ := newTestManager(t)
	if m.WiFi().SSID != "" {
		t.Fatalf("expected empty wifi config")
	}
	if m.Zone().ZoneID != "" {
		t.Fatalf("expected unassigned zone")
	}
}

func TestSetSensor_AnalogRequiresGPIO(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.SetSensor(types.SensorConfig{Interface: "analog", SensorType: "ph"})
	if errcode.Of(err) != errcode.ConfigMissing {
		t.Fatalf("expected ConfigMissing, got %v", err)
	}
}

func TestSetSensor_I2CKeyedBySyntheticAddr(t *testing.T) {
	m, _ := newTestManager(t)
	addr := uint8(0x44)
	cfg := types.SensorConfig{Interface: "i2c", SensorType: "sht31", I2CAddr: &addr}
	if err := m.SetSensor(cfg); err != nil {
		t.Fatalf("SetSensor: %v", err)
	}
	sensors := m.Sensors()
	if _, ok := sensors["i2c:0x44:sht31"]; !ok {
		t.Fatalf("expected synthetic i2c key, got %v", sensors)
	}
}

func TestSetSensor_I2CAddrOutOfRange(t *testing.T) {
	m, _ := newTestManager(t)
	addr := uint8(0x00)
	err := m.SetSensor(types.SensorConfig{Interface: "i2c", SensorType: "sht31", I2CAddr: &addr})
	if errcode.Of(err) != errcode.ConfigInvalid {
		t.Fatalf("expected ConfigInvalid for address 0x00, got %v", err)
	}
}

func TestSetActuator_PersistsAndReloads(t *testing.T) {
	m, be := newTestManager(t)
	if err := m.SetActuator(types.ActuatorConfig{GPIO: 5, ActuatorType: "pump", MaxRuntimeSeconds: 3}); err != nil {
		t.Fatalf("SetActuator: %v", err)
	}

	m2 := New(NewStore(be))
	if err := m2.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := m2.Actuators()[5]
	if !ok || got.ActuatorType != "pump" || got.MaxRuntimeSeconds != 3 {
		t.Fatalf("reloaded actuator mismatch: %+v", got)
	}
}

func TestSave_RollbackOnWriteFailure(t *testing.T) {
	be := NewMemBackend()
	be.FailNamespace = "wifi"
	m := New(NewStore(be))
	_ = m.Load()

	err := m.SetWiFi(types.WiFiConfig{SSID: "lab", Password: "secret"})
	if errcode.Of(err) != errcode.NVSWriteFailed {
		t.Fatalf("expected NVSWriteFailed, got %v", err)
	}
	if m.WiFi().SSID != "" {
		t.Fatalf("RAM cache must not change when the write-through fails, got %+v", m.WiFi())
	}
}

func TestApply_PartialSuccessReportsPerItemFailures(t *testing.T) {
	m, _ := newTestManager(t)
	msg := ConfigMessage{
		Sensors: []types.SensorConfig{
			{Interface: "analog", SensorType: "ph", GPIO: intPtr(34)},
			{Interface: "analog", SensorType: "bad"}, // missing gpio
		},
	}
	resp := m.Apply(msg, func() time.Time { return time.Unix(1735818000, 0) })
	if resp.Status != types.ConfigStatusPartialSuccess {
		t.Fatalf("expected partial_success, got %s", resp.Status)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].Code != types.ConfigErrMissingField {
		t.Fatalf("expected one MISSING_FIELD failure, got %+v", resp.Failures)
	}
}

func TestApply_AllValidReportsSuccess(t *testing.T) {
	m, _ := newTestManager(t)
	msg := ConfigMessage{Zone: &types.ZoneConfig{ZoneID: "zelt_1"}}
	resp := m.Apply(msg, func() time.Time { return time.Unix(0, 0) })
	if resp.Status != types.ConfigStatusSuccess {
		t.Fatalf("expected success, got %s: %+v", resp.Status, resp.Failures)
	}
}

func intPtr(i int) *int { return &i }
