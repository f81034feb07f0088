package sensors

import (
	"errors"
	"testing"
	"time"

	"trabajante/internal/errcode"
	"trabajante/types"
)

type fakeDriver struct {
	failNext int // fail this many reads before succeeding
	ended    bool
}

func (f *fakeDriver) Begin(types.SensorConfig) error { return nil }
func (f *fakeDriver) End()                           { f.ended = true }
func (f *fakeDriver) Read() (Reading, error) {
	if f.failNext > 0 {
		f.failNext--
		return Reading{}, errors.New("simulated failure")
	}
	return Reading{Raw: 42, Value: 0.42}, nil
}

func registerFake(t *testing.T, typ string, drv *fakeDriver) {
	t.Helper()
	RegisterDriver(typ, func() Driver { return drv })
	t.Cleanup(func() { delete(factories, typ) })
}

func TestConfigure_RespectsMaxSlots(t *testing.T) {
	m := NewManager(1)
	registerFake(t, "probe1", &fakeDriver{})
	registerFake(t, "probe2", &fakeDriver{})

	gpio34, gpio35 := 34, 35
	if err := m.Configure("34", types.SensorConfig{GPIO: &gpio34, SensorType: "probe1", Interface: "analog"}, time.Unix(0, 0)); err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	err := m.Configure("35", types.SensorConfig{GPIO: &gpio35, SensorType: "probe2", Interface: "analog"}, time.Unix(0, 0))
	if errcode.Of(err) != errcode.MemoryFull {
		t.Fatalf("expected MemoryFull at capacity, got %v", err)
	}
}

func TestTick_OnlyReadsDueSensors(t *testing.T) {
	m := NewManager(4)
	drv := &fakeDriver{}
	registerFake(t, "probe", drv)

	gpio := 34
	cfg := types.SensorConfig{GPIO: &gpio, SensorType: "probe", Interface: "analog", SamplingMs: 5000}
	start := time.Unix(1000, 0)
	if err := m.Configure("34", cfg, start); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	readings, _ := m.Tick(start, "ESP_1", "zone1")
	if len(readings) != 1 {
		t.Fatalf("expected one reading at the due time, got %d", len(readings))
	}

	readings, _ = m.Tick(start.Add(time.Second), "ESP_1", "zone1")
	if len(readings) != 0 {
		t.Fatalf("expected no reading before the next period, got %d", len(readings))
	}
}

func TestTick_DegradesAfterConsecutiveFailures(t *testing.T) {
	m := NewManager(4)
	drv := &fakeDriver{failNext: 100}
	registerFake(t, "probe", drv)

	gpio := 5
	cfg := types.SensorConfig{GPIO: &gpio, SensorType: "probe", Interface: "analog", SamplingMs: 1000}
	now := time.Unix(0, 0)
	if err := m.Configure("5", cfg, now); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	for i := 0; i < defaultFailThreshold; i++ {
		readings, failures := m.Tick(now, "ESP_1", "z")
		if len(readings) != 1 || readings[0].Quality != types.QualityInvalid {
			t.Fatalf("tick %d: expected one invalid reading, got %+v", i, readings)
		}
		if len(failures) != 1 {
			t.Fatalf("tick %d: expected one failure reported, got %d", i, len(failures))
		}
		now = m.slots["5"].nextDue
	}
	if !m.slots["5"].degraded {
		t.Fatalf("expected sensor to be degraded after %d consecutive failures", defaultFailThreshold)
	}

	drv.failNext = 0
	readings, _ := m.Tick(now, "ESP_1", "z")
	if len(readings) != 1 || readings[0].Quality != types.QualityGood {
		t.Fatalf("expected recovery reading to be good quality, got %+v", readings)
	}
	if m.slots["5"].degraded {
		t.Fatalf("expected degraded to clear after a successful read")
	}
}

func TestRegisterDriver_DuplicatePanics(t *testing.T) {
	registerFake(t, "dup-probe", &fakeDriver{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate driver registration")
		}
	}()
	RegisterDriver("dup-probe", func() Driver { return &fakeDriver{} })
}

func TestRemove_EndsDriver(t *testing.T) {
	m := NewManager(4)
	drv := &fakeDriver{}
	registerFake(t, "probe", drv)
	gpio := 1
	_ = m.Configure("1", types.SensorConfig{GPIO: &gpio, SensorType: "probe", Interface: "analog"}, time.Unix(0, 0))
	m.Remove("1")
	if !drv.ended {
		t.Fatalf("expected driver.End() to be called on Remove")
	}
	if m.Count() != 0 {
		t.Fatalf("expected registry empty after Remove")
	}
}
