// Package sensors implements the sensor manager of spec §4.3: a bounded
// registry of configured sensors, soft-budgeted sampling, failure-count
// degrade/backoff, and MQTT payload assembly.
//
// Grounded on the teacher's services/hal/internal/core Device/Builder
// registry (register-by-type, panic on duplicate registration) narrowed to
// this firmware's begin/end/read contract (§4.3), and on the AHT20 driver's
// two-phase trigger/collect shape for multi-value I2C sensors.
package sensors

import "trabajante/types"

// Reading is what a driver's Read returns; the manager turns it into a wire
// types.SensorReading by attaching identity (esp_id, zone, gpio, ts).
type Reading struct {
	Raw       float64
	Value     float64
	Unit      string
	Secondary map[string]float64 // canonical name -> value, for multi-value drivers
}

// Driver is the contract every sensor driver implements (§4.3). Begin/End
// bracket the driver's lifetime; Read is called once per scheduled tick.
type Driver interface {
	Begin(cfg types.SensorConfig) error
	End()
	Read() (Reading, error)
}

// Factory builds one Driver instance for a sensor_type. Drivers that need
// bus access (I2C/OneWire) close over the bus handle at registration time in
// cmd/trabajante/wiring.go, matching the teacher's Builder closing over Resources.
type Factory func() Driver

var factories = map[string]Factory{}

// RegisterDriver binds a sensor_type string to a Factory. Panics on a
// duplicate type, the same defensive posture as the teacher's
// core.RegisterBuilder — a duplicate registration is a wiring bug, not a
// runtime condition to recover from.
func RegisterDriver(sensorType string, f Factory) {
	if _, exists := factories[sensorType]; exists {
		panic("sensors: duplicate driver registration for " + sensorType)
	}
	factories[sensorType] = f
}

// lookup resolves a sensor_type to a Factory. Unknown types fall back to the
// raw-passthrough driver for their interface per §4.3 ("unknown types
// default to raw-passthrough"); the fallback keys are registered by
// cmd/trabajante/wiring.go once the board's raw ADC/GPIO surface is available.
func lookup(cfg types.SensorConfig) Factory {
	if f, ok := factories[cfg.SensorType]; ok {
		return f
	}
	switch cfg.Interface {
	case "digital":
		return factories[RawDigitalType]
	default:
		return factories[RawAnalogType]
	}
}

// RawAnalogType and RawDigitalType are the factory keys
// cmd/trabajante/wiring.go registers the board's raw-passthrough drivers under.
const (
	RawAnalogType  = "__raw_analog__"
	RawDigitalType = "__raw_digital__"
)
