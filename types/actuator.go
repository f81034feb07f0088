package types

// ActuatorConfig is the persisted+applied shape of one actuator registry
// entry (§4.4).
type ActuatorConfig struct {
	GPIO              int    `json:"gpio"`
	ActuatorType       string `json:"actuator_type"` // "binary" | "pwm" | "valve" | "pump"
	Inverted           bool   `json:"inverted"`
	DefaultState       bool   `json:"default_state"`
	MaxRuntimeSeconds  uint32 `json:"max_runtime_seconds"` // 0 = unlimited
	Critical           bool   `json:"critical"`
}

// ActuatorCommand arrives on .../actuator/{gpio}/command (§6).
type ActuatorCommand struct {
	Command   string  `json:"command"` // "ON" | "OFF" | "PWM" | "TOGGLE"
	Value     float64 `json:"value,omitempty"`
	Duration  uint32  `json:"duration"` // seconds, 0 = unbounded
	Timestamp int64   `json:"timestamp"`
}

// ActuatorStatus is published on .../actuator/{gpio}/status after every
// state change.
type ActuatorStatus struct {
	State string  `json:"state"`
	Value float64 `json:"value"`
	TS    int64   `json:"ts"`
}

// ActuatorResponse acknowledges one ActuatorCommand on .../response.
type ActuatorResponse struct {
	Command   string `json:"command"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	TS        int64  `json:"ts"`
}

// ActuatorAlert reports a runtime watchdog or driver-level alert on
// .../actuator/{gpio}/alert.
type ActuatorAlert struct {
	GPIO   int    `json:"gpio"`
	Reason string `json:"reason"`
	TS     int64  `json:"ts"`
}

// EmergencyEvent is published on .../actuator/emergency and on the global
// broadcast topic.
type EmergencyEvent struct {
	Reason string `json:"reason"`
	TS     int64  `json:"ts"`
}
