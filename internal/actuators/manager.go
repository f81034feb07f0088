package actuators

import (
	"time"

	"trabajante/internal/errcode"
	"trabajante/types"
	"trabajante/x/mathx"
	"trabajante/x/ramp"
)

// State is one position in the emergency state machine of §4.4.
type State string

const (
	StateNormal   State = "NORMAL"
	StateActive   State = "ACTIVE"
	StateClearing State = "CLEARING"
	StateResuming State = "RESUMING"
)

// resumeRampMs is the CLEARING->RESUMING ramp duration (§9 open question,
// pinned to immediate in SPEC_FULL.md §4). x/ramp.StartLinear's steps==0
// branch snaps straight to the target, so zero here costs nothing extra.
const resumeRampMs = 0

type actuator struct {
	gpio               int
	cfg                types.ActuatorConfig
	driver             Driver
	state              State
	lastValue          float64
	runtimeActiveSince time.Time
	emergencyReason    string
}

// Manager is the actuator registry, command validator, and runtime
// watchdog of §4.4.
type Manager struct {
	actuators map[int]*actuator
}

func NewManager() *Manager {
	return &Manager{actuators: make(map[int]*actuator)}
}

// Configure begins a driver for cfg, drives it to its configured default
// state, and registers it under cfg.GPIO. A driver that fails Begin is never
// added and holds no pin; one that fails the initial SetBinary is ended,
// which releases its GPIO, and is not added either (§4.4 failure semantics).
func (m *Manager) Configure(cfg types.ActuatorConfig) error {
	if existing, ok := m.actuators[cfg.GPIO]; ok {
		existing.driver.End()
		delete(m.actuators, cfg.GPIO)
	}
	factory, ok := lookup(cfg.ActuatorType)
	if !ok {
		return errcode.New(errcode.ActuatorInitFailed, "Configure", "unknown actuator_type "+cfg.ActuatorType)
	}
	drv := factory()
	if err := drv.Begin(cfg); err != nil {
		return errcode.New(errcode.ActuatorInitFailed, "Configure", err.Error())
	}
	a := &actuator{gpio: cfg.GPIO, cfg: cfg, driver: drv, state: StateNormal}
	if err := drv.SetBinary(cfg.DefaultState); err != nil {
		drv.End()
		return errcode.New(errcode.ActuatorInitFailed, "Configure", err.Error())
	}
	m.actuators[cfg.GPIO] = a
	return nil
}

func (m *Manager) Remove(gpio int) {
	if a, ok := m.actuators[gpio]; ok {
		a.driver.End()
		delete(m.actuators, gpio)
	}
}

func (m *Manager) Count() int { return len(m.actuators) }

// Status returns the current status of one actuator, for .../status replays.
func (m *Manager) Status(gpio int) (types.ActuatorStatus, bool) {
	a, ok := m.actuators[gpio]
	if !ok {
		return types.ActuatorStatus{}, false
	}
	return types.ActuatorStatus{State: string(a.state), Value: a.lastValue}, true
}

// Command validates and applies one inbound command (§4.4 command flow). It
// never blocks beyond the driver's own SetValue/SetBinary call, matching the
// ≤100ms actuator-apply bound.
func (m *Manager) Command(gpio int, cmd types.ActuatorCommand, now time.Time) (types.ActuatorResponse, *types.ActuatorStatus) {
	a, ok := m.actuators[gpio]
	if !ok {
		return errResponse(cmd, "UNKNOWN_ACTUATOR", now), nil
	}

	if cmd.Command == "CLEAR" {
		return m.clear(a, now)
	}

	if a.state != StateNormal {
		return errResponse(cmd, "ACTUATOR_SET_FAILED", now), nil
	}

	var err error
	var value float64
	switch cmd.Command {
	case "ON":
		value = clampValue(valueOrOne(cmd.Value))
		err = a.driver.SetValue(value)
	case "OFF":
		value = 0
		err = a.driver.SetBinary(false)
	case "PWM":
		value = clampValue(cmd.Value)
		err = a.driver.SetValue(value)
	case "TOGGLE":
		value = 1 - a.lastValue
		err = a.driver.SetValue(clampValue(value))
	default:
		return errResponse(cmd, "UNKNOWN_COMMAND", now), nil
	}

	if err != nil {
		return errResponse(cmd, err.Error(), now), nil
	}

	a.lastValue = value
	a.runtimeActiveSince = now
	status := types.ActuatorStatus{State: string(a.state), Value: value, TS: now.Unix()}
	return types.ActuatorResponse{Command: cmd.Command, Success: true, TS: now.Unix()}, &status
}

func (m *Manager) clear(a *actuator, now time.Time) (types.ActuatorResponse, *types.ActuatorStatus) {
	if a.state != StateActive {
		return types.ActuatorResponse{Command: "CLEAR", Success: false, ErrorCode: "NOT_ACTIVE", TS: now.Unix()}, nil
	}
	a.state = StateClearing
	target := a.lastValue
	ramp.StartLinear(0, toRampUnit(target), 65535, resumeRampMs, 0,
		func(time.Duration) bool { return true },
		func(level uint16) {
			_ = a.driver.SetValue(fromRampUnit(level))
		},
	)
	a.state = StateResuming
	a.state = StateNormal
	a.runtimeActiveSince = now
	status := types.ActuatorStatus{State: string(a.state), Value: target, TS: now.Unix()}
	return types.ActuatorResponse{Command: "CLEAR", Success: true, TS: now.Unix()}, &status
}

// Tick drives the runtime watchdog (§4.4 Runtime protection); the global
// emergency sweep is EmergencyStopAll. It returns an alert if any actuator
// just tripped its max_runtime_seconds bound.
func (m *Manager) Tick(now time.Time) []types.ActuatorAlert {
	var alerts []types.ActuatorAlert
	for _, a := range m.actuators {
		if a.state != StateNormal || a.cfg.MaxRuntimeSeconds == 0 {
			continue
		}
		if a.runtimeActiveSince.IsZero() {
			continue
		}
		if now.Sub(a.runtimeActiveSince) > time.Duration(a.cfg.MaxRuntimeSeconds)*time.Second {
			_ = a.driver.SafeDefault()
			a.lastValue = 0
			a.state = StateActive
			a.emergencyReason = "RUNTIME_EXCEEDED"
			a.runtimeActiveSince = time.Time{} // trip fires once; CLEAR re-arms it
			alerts = append(alerts, types.ActuatorAlert{GPIO: a.gpio, Reason: "RUNTIME_EXCEEDED", TS: now.Unix()})
		}
	}
	return alerts
}

// EmergencyStopAll transitions every actuator to ACTIVE immediately — the
// global kaiser/broadcast/emergency handler (§4.4). It returns each
// actuator's resulting status keyed by GPIO, so the caller can publish the
// per-actuator .../actuator/{gpio}/status messages alongside the combined
// emergency event (§8 scenario 5).
func (m *Manager) EmergencyStopAll(reason string, now time.Time) map[int]types.ActuatorStatus {
	statuses := make(map[int]types.ActuatorStatus, len(m.actuators))
	for gpio, a := range m.actuators {
		_ = a.driver.SafeDefault()
		a.lastValue = 0
		a.state = StateActive
		a.emergencyReason = reason
		a.runtimeActiveSince = now
		statuses[gpio] = types.ActuatorStatus{State: string(a.state), Value: a.lastValue, TS: now.Unix()}
	}
	return statuses
}

func errResponse(cmd types.ActuatorCommand, code string, now time.Time) types.ActuatorResponse {
	return types.ActuatorResponse{Command: cmd.Command, Success: false, ErrorCode: code, TS: now.Unix()}
}

func clampValue(v float64) float64 { return mathx.Clamp(v, 0.0, 1.0) }

func valueOrOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func toRampUnit(v float64) uint16   { return uint16(clampValue(v) * 65535) }
func fromRampUnit(u uint16) float64 { return float64(u) / 65535 }
