// Package actuators implements the actuator manager of spec §4.4: the
// begin/end/setValue/setBinary driver contract (plus SafeDefault), the
// NORMAL/ACTIVE/CLEARING/RESUMING state machine, and the
// max_runtime_seconds watchdog. Emergency stop, clear and tick are Manager
// operations, not driver methods.
//
// Grounded on the same Builder/registry idiom as internal/sensors (teacher's
// core.RegisterBuilder), and on x/ramp.StartLinear for the CLEARING->
// RESUMING value ramp.
package actuators

import "trabajante/types"

// Driver is the hardware contract one actuator driver implements. The state
// machine itself lives in Manager, not here: a driver only ever sets the
// electrical output the manager tells it to.
type Driver interface {
	Begin(cfg types.ActuatorConfig) error
	End()
	SetValue(v float64) error // v in [0,1]; PWM-typed
	SetBinary(on bool) error  // binary/valve/pump-typed
	SafeDefault() error       // drive output off / 0 (not cfg.DefaultState), used on ACTIVE entry
}

type Factory func() Driver

var factories = map[string]Factory{}

// RegisterDriver binds an actuator_type to a Factory. Panics on a duplicate
// type, same defensive posture as internal/sensors.RegisterDriver.
func RegisterDriver(actuatorType string, f Factory) {
	if _, exists := factories[actuatorType]; exists {
		panic("actuators: duplicate driver registration for " + actuatorType)
	}
	factories[actuatorType] = f
}

func lookup(actuatorType string) (Factory, bool) {
	f, ok := factories[actuatorType]
	return f, ok
}
