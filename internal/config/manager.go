package config

import (
	"encoding/json"
	"strconv"

	"trabajante/internal/errcode"
	"trabajante/internal/i2cbus"
	"trabajante/types"

	"github.com/andreyvit/tinyjson"
)

const (
	nsWiFi      = "wifi"
	nsMQTT      = "mqtt"
	nsZone      = "zone"
	nsDevice    = "device"
	nsSensors   = "sensors"
	nsActuators = "actuators"
	nsSubzones  = "subzones"
)

// Manager is the RAM-cached, typed view over the persisted namespaces (§4.5).
// All access goes through its API; it is the single writer of its own cache,
// matching the "configuration manager's RAM cache (single-writer via its
// API)" shared-resource rule of §5.
type Manager struct {
	store *Store

	wifi   types.WiFiConfig
	mqtt   types.MQTTConfig
	zone   types.ZoneConfig
	device types.DeviceConfig

	sensors   map[string]types.SensorConfig
	actuators map[int]types.ActuatorConfig
	subzones  map[string]types.SubzoneConfig
}

func New(store *Store) *Manager {
	return &Manager{
		store:     store,
		sensors:   make(map[string]types.SensorConfig),
		actuators: make(map[int]types.ActuatorConfig),
		subzones:  make(map[string]types.SubzoneConfig),
	}
}

// SensorKey returns the canonical KV key for a sensor record: "i2c:<addr>:
// <type>" for bus-addressed sensors (decided open question, SPEC_FULL.md
// §4), otherwise the decimal GPIO number.
func SensorKey(c types.SensorConfig) string {
	if c.Interface == "i2c" && c.I2CAddr != nil {
		return "i2c:0x" + hexByte(*c.I2CAddr) + ":" + c.SensorType
	}
	if c.GPIO != nil {
		return strconv.Itoa(*c.GPIO)
	}
	return c.OneWireROM
}

func hexByte(b uint8) string {
	const d = "0123456789abcdef"
	return string([]byte{d[b>>4], d[b&0xf]})
}

// Load reads every namespace from the store into the RAM cache, validating
// each record as it goes (CONFIG_INVALID / CONFIG_MISSING, §4.5). A missing
// namespace is not itself an error — an empty wifi namespace puts the device
// in the provisioning state, an empty zone namespace leaves it unassigned
// (§4.5 Boot policy) — but a present, malformed record is.
func (m *Manager) Load() error {
	if ok, err := m.loadSingle(nsWiFi, "wifi", &m.wifi); err != nil {
		return err
	} else if ok && m.wifi.SSID == "" {
		return errcode.New(errcode.ConfigMissing, "Load", "wifi.ssid")
	}
	if _, err := m.loadSingle(nsMQTT, "mqtt", &m.mqtt); err != nil {
		return err
	}
	if _, err := m.loadSingle(nsZone, "zone", &m.zone); err != nil {
		return err
	}
	if _, err := m.loadSingle(nsDevice, "esp_id", &m.device); err != nil {
		return err
	}

	sensorKeys, err := m.store.Keys(nsSensors)
	if err != nil {
		return err
	}
	for _, k := range sensorKeys {
		var sc types.SensorConfig
		ok, err := m.loadSingle(nsSensors, k, &sc)
		if err != nil {
			return err
		}
		if !ok {
			continue // empty record: tombstone of a removed sensor
		}
		m.sensors[k] = sc
	}

	actKeys, err := m.store.Keys(nsActuators)
	if err != nil {
		return err
	}
	for _, k := range actKeys {
		var ac types.ActuatorConfig
		ok, err := m.loadSingle(nsActuators, k, &ac)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		m.actuators[ac.GPIO] = ac
	}

	subKeys, err := m.store.Keys(nsSubzones)
	if err != nil {
		return err
	}
	for _, k := range subKeys {
		var sz types.SubzoneConfig
		ok, err := m.loadSingle(nsSubzones, k, &sz)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		m.subzones[k] = sz
	}
	return nil
}

// loadSingle fetches one record, type-checks its raw shape with tinyjson
// (mirrors the teacher's tinyjson.Raw parse), then unmarshals it into out
// with encoding/json. Returns ok=false when the key is simply absent.
func (m *Manager) loadSingle(namespace, key string, out any) (bool, error) {
	raw, ok, err := m.store.Get(namespace, key)
	if err != nil {
		return false, err
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()
	if _, isMap := val.(map[string]any); !isMap {
		return false, errcode.New(errcode.ConfigInvalid, "loadSingle", namespace+"."+key+" is not a JSON object")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errcode.New(errcode.ConfigInvalid, "loadSingle", err.Error())
	}
	return true, nil
}

// save write-throughs one namespace/key and, on failure, leaves the RAM
// cache untouched by the caller (rollback is the caller's responsibility:
// apply the value to a local variable, attempt save, only assign into the
// live cache on success).
func (m *Manager) save(namespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errcode.New(errcode.ConfigInvalid, "save", err.Error())
	}
	return m.store.Set(namespace, key, raw)
}

func (m *Manager) WiFi() types.WiFiConfig { return m.wifi }

func (m *Manager) SetWiFi(c types.WiFiConfig) error {
	if c.SSID == "" {
		return errcode.New(errcode.ConfigMissing, "SetWiFi", "ssid")
	}
	if err := m.save(nsWiFi, "wifi", c); err != nil {
		return err
	}
	m.wifi = c
	return nil
}

func (m *Manager) MQTT() types.MQTTConfig { return m.mqtt }

func (m *Manager) SetMQTT(c types.MQTTConfig) error {
	if c.BrokerHost == "" || c.KaiserID == "" {
		return errcode.New(errcode.ConfigMissing, "SetMQTT", "broker_host/kaiser_id")
	}
	if err := m.save(nsMQTT, "mqtt", c); err != nil {
		return err
	}
	m.mqtt = c
	return nil
}

func (m *Manager) Zone() types.ZoneConfig { return m.zone }

func (m *Manager) SetZone(c types.ZoneConfig) error {
	if c.ZoneID == "" {
		return errcode.New(errcode.ConfigMissing, "SetZone", "zone_id")
	}
	if err := m.save(nsZone, "zone", c); err != nil {
		return err
	}
	m.zone = c
	return nil
}

func (m *Manager) Device() types.DeviceConfig { return m.device }

// SetDevice persists the esp_id exactly once; the spec names it "generated
// once, immutable thereafter" so a non-empty existing value is left alone.
func (m *Manager) SetDevice(c types.DeviceConfig) error {
	if m.device.EspID != "" {
		return nil
	}
	if err := m.save(nsDevice, "esp_id", c); err != nil {
		return err
	}
	m.device = c
	return nil
}

func (m *Manager) Sensors() map[string]types.SensorConfig {
	out := make(map[string]types.SensorConfig, len(m.sensors))
	for k, v := range m.sensors {
		out[k] = v
	}
	return out
}

// SetSensor validates, persists, then caches one sensor record. Validation
// failures classify as CONFIG_INVALID (bad types/enum), CONFIG_MISSING
// (absent required field), or, for I2C sensors, the bus address range check
// from internal/i2cbus.
func (m *Manager) SetSensor(c types.SensorConfig) error {
	if c.Interface == "" || c.SensorType == "" {
		return errcode.New(errcode.ConfigMissing, "SetSensor", "interface/sensor_type")
	}
	switch c.Interface {
	case "analog", "digital":
		if c.GPIO == nil {
			return errcode.New(errcode.ConfigMissing, "SetSensor", "gpio")
		}
	case "i2c":
		if c.I2CAddr == nil {
			return errcode.New(errcode.ConfigMissing, "SetSensor", "i2c_addr")
		}
		if err := i2cbus.ValidateAddress(*c.I2CAddr); err != nil {
			return errcode.New(errcode.ConfigInvalid, "SetSensor", "i2c_addr out of range")
		}
	case "onewire":
		if c.OneWireROM == "" {
			return errcode.New(errcode.ConfigMissing, "SetSensor", "onewire_rom")
		}
	default:
		return errcode.New(errcode.ConfigInvalid, "SetSensor", "unknown interface "+c.Interface)
	}
	key := SensorKey(c)
	if err := m.save(nsSensors, key, c); err != nil {
		return err
	}
	m.sensors[key] = c
	return nil
}

func (m *Manager) RemoveSensor(key string) error {
	if err := m.store.Delete(nsSensors, key); err != nil {
		return err
	}
	delete(m.sensors, key)
	return nil
}

func (m *Manager) Actuators() map[int]types.ActuatorConfig {
	out := make(map[int]types.ActuatorConfig, len(m.actuators))
	for k, v := range m.actuators {
		out[k] = v
	}
	return out
}

func (m *Manager) SetActuator(c types.ActuatorConfig) error {
	if c.ActuatorType == "" {
		return errcode.New(errcode.ConfigMissing, "SetActuator", "actuator_type")
	}
	switch c.ActuatorType {
	case "binary", "pwm", "valve", "pump":
	default:
		return errcode.New(errcode.ConfigInvalid, "SetActuator", "unknown actuator_type "+c.ActuatorType)
	}
	key := strconv.Itoa(c.GPIO)
	if err := m.save(nsActuators, key, c); err != nil {
		return err
	}
	m.actuators[c.GPIO] = c
	return nil
}

func (m *Manager) RemoveActuator(gpio int) error {
	if err := m.store.Delete(nsActuators, strconv.Itoa(gpio)); err != nil {
		return err
	}
	delete(m.actuators, gpio)
	return nil
}

func (m *Manager) Subzones() map[string]types.SubzoneConfig {
	out := make(map[string]types.SubzoneConfig, len(m.subzones))
	for k, v := range m.subzones {
		out[k] = v
	}
	return out
}

func (m *Manager) SetSubzone(c types.SubzoneConfig) error {
	if c.SubzoneID == "" {
		return errcode.New(errcode.ConfigMissing, "SetSubzone", "subzone_id")
	}
	if err := m.save(nsSubzones, c.SubzoneID, c); err != nil {
		return err
	}
	m.subzones[c.SubzoneID] = c
	return nil
}
