package config

import (
	"strconv"
	"time"

	"trabajante/internal/errcode"
	"trabajante/types"
)

// ConfigMessage is the payload of .../config (§6): a batch of namespace
// updates in one QoS 2 delivery. Any subset of fields may be present.
type ConfigMessage struct {
	WiFi      *types.WiFiConfig      `json:"wifi,omitempty"`
	MQTT      *types.MQTTConfig      `json:"mqtt,omitempty"`
	Zone      *types.ZoneConfig      `json:"zone,omitempty"`
	Sensors   []types.SensorConfig   `json:"sensors,omitempty"`
	Actuators []types.ActuatorConfig `json:"actuators,omitempty"`
	Subzones  []types.SubzoneConfig  `json:"subzones,omitempty"`
}

// Apply validates and persists every item in msg independently — one bad
// sensor record does not block the rest — and returns the ConfigResponse to
// publish on .../config_response (§4.5). now supplies the publish
// timestamp so the package stays free of direct time.Now() calls, matching
// the rest of the firmware's injected-clock convention.
func (m *Manager) Apply(msg ConfigMessage, now func() time.Time) types.ConfigResponse {
	var failures []types.ConfigItemFailure

	if msg.WiFi != nil {
		if err := m.SetWiFi(*msg.WiFi); err != nil {
			failures = append(failures, itemFailure("wifi", err))
		}
	}
	if msg.MQTT != nil {
		if err := m.SetMQTT(*msg.MQTT); err != nil {
			failures = append(failures, itemFailure("mqtt", err))
		}
	}
	if msg.Zone != nil {
		if err := m.SetZone(*msg.Zone); err != nil {
			failures = append(failures, itemFailure("zone", err))
		}
	}
	for _, sc := range msg.Sensors {
		if err := m.SetSensor(sc); err != nil {
			failures = append(failures, itemFailure(SensorKey(sc), err))
		}
	}
	for _, ac := range msg.Actuators {
		if err := m.SetActuator(ac); err != nil {
			failures = append(failures, itemFailure(strconv.Itoa(ac.GPIO), err))
		}
	}
	for _, sz := range msg.Subzones {
		if err := m.SetSubzone(sz); err != nil {
			failures = append(failures, itemFailure(sz.SubzoneID, err))
		}
	}

	total := CountItems(msg)

	return types.ConfigResponse{
		Status:   ResponseStatus(total, len(failures)),
		Failures: failures,
		TS:       now().Unix(),
	}
}

// CountItems is the number of independently-validated items in msg, used to
// classify a ConfigResponse as success/partial_success/error.
func CountItems(msg ConfigMessage) int {
	return boolToInt(msg.WiFi != nil) + boolToInt(msg.MQTT != nil) + boolToInt(msg.Zone != nil) +
		len(msg.Sensors) + len(msg.Actuators) + len(msg.Subzones)
}

// ResponseStatus classifies a ConfigResponse from how many of total items
// failed. Exported so callers that defer part of validation past Apply (e.g.
// driver instantiation, which can only run after Apply has persisted the
// record) can recompute the status once every failure is known.
func ResponseStatus(total, failed int) types.ConfigResponseStatus {
	switch {
	case failed == 0:
		return types.ConfigStatusSuccess
	case failed >= total:
		return types.ConfigStatusError
	default:
		return types.ConfigStatusPartialSuccess
	}
}

// ItemFailure converts a registry/driver error into the ConfigItemFailure
// shape reported on .../config_response, for failures raised outside Apply
// itself (e.g. GPIO_CONFLICT surfacing only once a driver is actually
// instantiated against the shared arbiter).
func ItemFailure(key string, err error) types.ConfigItemFailure {
	return itemFailure(key, err)
}

func itemFailure(key string, err error) types.ConfigItemFailure {
	code := errcode.Of(err)
	return types.ConfigItemFailure{
		Key:     key,
		Code:    toConfigErrorCode(code),
		Message: err.Error(),
	}
}

func toConfigErrorCode(c errcode.Code) types.ConfigErrorCode {
	switch c {
	case errcode.ConfigMissing:
		return types.ConfigErrMissingField
	case errcode.ConfigInvalid:
		return types.ConfigErrValidationFailed
	case errcode.NVSWriteFailed:
		return types.ConfigErrNVSWriteFailed
	case errcode.GPIOConflict:
		return types.ConfigErrGPIOConflict
	default:
		return types.ConfigErrUnknown
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

