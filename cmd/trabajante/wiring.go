package main

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"trabajante/internal/actuators"
	actdrivers "trabajante/internal/actuators/drivers"
	"trabajante/internal/config"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/i2cbus"
	"trabajante/internal/onewirebus"
	"trabajante/internal/pwmpool"
	"trabajante/internal/sensors"
	sensdrivers "trabajante/internal/sensors/drivers"
	"trabajante/types"
)

func marshalJSON(v any) ([]byte, error) { return json.Marshal(v) }
func itoa(i int) string                  { return strconv.Itoa(i) }

// registerSensorDrivers binds every known sensor_type to a Factory. Called
// once per boot; RegisterDriver panics on a duplicate type, so this must
// only ever run once per process.
func registerSensorDrivers(i2c *i2cbus.Bus, ow *onewirebus.Bus, arb *gpioarbiter.Arbiter, analog sensdrivers.AnalogReader, digital sensdrivers.DigitalReader) {
	sensors.RegisterDriver(sensors.RawAnalogType, func() sensors.Driver { return sensdrivers.NewRawAnalog(arb, analog) })
	sensors.RegisterDriver(sensors.RawDigitalType, func() sensors.Driver { return sensdrivers.NewRawDigital(arb, digital) })
	sensors.RegisterDriver("sht31", func() sensors.Driver {
		return sensdrivers.NewI2CMultiValue(i2c, sensdrivers.SHT31Codec{}, "temperature")
	})
	sensors.RegisterDriver("ds18b20", func() sensors.Driver { return sensdrivers.NewDS18B20(ow) })
}

func registerActuatorDrivers(arb *gpioarbiter.Arbiter, pool *pwmpool.Pool, pwmHW actdrivers.PWMSetter, pinHW actdrivers.PinSetter) {
	actuators.RegisterDriver("binary", func() actuators.Driver { return actdrivers.NewBinary(arb, pinHW) })
	actuators.RegisterDriver("valve", func() actuators.Driver { return actdrivers.NewBinary(arb, pinHW) })
	actuators.RegisterDriver("pump", func() actuators.Driver { return actdrivers.NewBinary(arb, pinHW) })
	actuators.RegisterDriver("pwm", func() actuators.Driver { return actdrivers.NewPWM(arb, pool, pwmHW, 1023) })
}

// wireRoutes subscribes every inbound topic of §6 and parks its handler
// behind the MQTT client's router — handlers run on the cooperative loop
// only, during Client.Tick, never on the driver's own callback (§5).
func (app *App) wireRoutes(kaiserID, espID string) {
	prefix := "kaiser/" + kaiserID + "/esp/" + espID + "/"

	app.mqttCl.Subscribe(prefix+"actuator/+/command", 2, app.handleActuatorCommand)
	app.mqttCl.Subscribe(prefix+"system/command", 2, app.handleSystemCommand)
	app.mqttCl.Subscribe(prefix+"config", 2, app.handleConfig)
	app.mqttCl.Subscribe(prefix+"zone/assign", 1, app.handleZoneAssign)
	app.mqttCl.Subscribe(prefix+"subzone/assign", 1, app.handleSubzoneAssign)
	app.mqttCl.Subscribe(prefix+"sensor/+/processed", 1, app.handleSensorProcessed)
	app.mqttCl.Subscribe("kaiser/broadcast/emergency", 1, app.handleEmergency)
}

func (app *App) handleActuatorCommand(topic string, payload []byte) {
	gpio, ok := gpioFromTopic(topic, "actuator")
	if !ok {
		return
	}
	var cmd types.ActuatorCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return
	}
	now := time.Unix(cmd.Timestamp, 0)
	if cmd.Timestamp == 0 {
		now = app.lastHeartbeat
	}
	resp, status := app.sensorMgr.actuators.Command(gpio, cmd, now)
	kaiserID, espID := app.cfg.MQTT().KaiserID, app.cfg.Device().EspID
	base := "kaiser/" + kaiserID + "/esp/" + espID + "/actuator/" + itoa(gpio)

	if respPayload, err := marshalJSON(resp); err == nil {
		app.mqttCl.Publish(base+"/response", respPayload, 1, false, now)
	}
	if status != nil {
		if statusPayload, err := marshalJSON(status); err == nil {
			app.mqttCl.Publish(base+"/status", statusPayload, 1, false, now)
		}
	}
}

func (app *App) handleSystemCommand(topic string, payload []byte) {
	var cmd types.SystemCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return
	}
	switch cmd.Command {
	case "restart", "reset":
		app.pendingRestart = true
	}
}

func (app *App) handleConfig(topic string, payload []byte) {
	var msg config.ConfigMessage
	clock := func() time.Time { return app.lastHeartbeat }
	if err := json.Unmarshal(payload, &msg); err != nil {
		resp := types.ConfigResponse{Status: types.ConfigStatusError, TS: app.lastHeartbeat.Unix()}
		if p, err := marshalJSON(resp); err == nil {
			app.publishConfigResponse(p)
		}
		return
	}
	resp := app.cfg.Apply(msg, clock)

	// Apply only validates and persists — GPIO_CONFLICT and similar failures
	// can only be raised once a driver is actually instantiated against the
	// shared arbiter/bus, which happens here. Fold those failures into the
	// same response rather than reporting "success" while the registry
	// silently drops the item.
	driverFailures := make(map[string]error)
	for key, sc := range app.cfg.Sensors() {
		if err := app.sensorMgr.sensors.Configure(key, sc, app.lastHeartbeat); err != nil {
			driverFailures[key] = err
		}
	}
	for _, ac := range app.cfg.Actuators() {
		if err := app.sensorMgr.actuators.Configure(ac); err != nil {
			driverFailures[itoa(ac.GPIO)] = err
		}
	}
	for _, sc := range msg.Sensors {
		key := config.SensorKey(sc)
		if err, ok := driverFailures[key]; ok {
			resp.Failures = append(resp.Failures, config.ItemFailure(key, err))
		}
	}
	for _, ac := range msg.Actuators {
		key := itoa(ac.GPIO)
		if err, ok := driverFailures[key]; ok {
			resp.Failures = append(resp.Failures, config.ItemFailure(key, err))
		}
	}
	resp.Status = config.ResponseStatus(config.CountItems(msg), len(resp.Failures))

	if p, err := marshalJSON(resp); err == nil {
		app.publishConfigResponse(p)
	}
}

func (app *App) publishConfigResponse(payload []byte) {
	kaiserID, espID := app.cfg.MQTT().KaiserID, app.cfg.Device().EspID
	app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/config_response", payload, 2, false, app.lastHeartbeat)
}

func (app *App) handleZoneAssign(topic string, payload []byte) {
	var za types.ZoneAssign
	if err := json.Unmarshal(payload, &za); err != nil {
		return
	}
	now := app.lastHeartbeat
	status := "zone_assigned"
	if err := app.cfg.SetZone(types.ZoneConfig{ZoneID: za.ZoneID, ZoneName: za.ZoneName, MasterZoneID: za.MasterZoneID}); err != nil {
		status = "error"
	}
	ack := types.ZoneAck{ZoneID: za.ZoneID, Status: status, TS: now.Unix()}
	kaiserID, espID := app.cfg.MQTT().KaiserID, app.cfg.Device().EspID
	if p, err := marshalJSON(ack); err == nil {
		app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/zone/ack", p, 1, false, now)
	}
}

func (app *App) handleSubzoneAssign(topic string, payload []byte) {
	var sa types.SubzoneAssign
	if err := json.Unmarshal(payload, &sa); err != nil {
		return
	}
	now := app.lastHeartbeat
	status := "subzone_assigned"
	if err := app.cfg.SetSubzone(types.SubzoneConfig{SubzoneID: sa.SubzoneID, GPIOs: sa.GPIOs}); err != nil {
		status = "error"
	}
	ack := types.SubzoneAck{SubzoneID: sa.SubzoneID, Status: status, TS: now.Unix()}
	kaiserID, espID := app.cfg.MQTT().KaiserID, app.cfg.Device().EspID
	if p, err := marshalJSON(ack); err == nil {
		app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/subzone/ack", p, 1, false, now)
	}
}

// handleSensorProcessed just logs the server-processed value; the device
// does no local calibration (§1 non-goals), it only observes what the
// server computed from its raw reading.
func (app *App) handleSensorProcessed(topic string, payload []byte) {
	var pv types.ProcessedValue
	if err := json.Unmarshal(payload, &pv); err != nil {
		return
	}
	app.log.Infof("sensor", "processed value %v at %d", pv.Value, pv.TS)
}

func (app *App) handleEmergency(topic string, payload []byte) {
	now := app.lastHeartbeat
	statuses := app.sensorMgr.actuators.EmergencyStopAll("BROADCAST_EMERGENCY", now)
	kaiserID, espID := app.cfg.MQTT().KaiserID, app.cfg.Device().EspID
	ev := types.EmergencyEvent{Reason: "BROADCAST_EMERGENCY", TS: now.Unix()}
	if p, err := marshalJSON(ev); err == nil {
		app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/actuator/emergency", p, 1, false, now)
	}
	for gpio, status := range statuses {
		if p, err := marshalJSON(status); err == nil {
			app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/actuator/"+itoa(gpio)+"/status", p, 1, false, now)
		}
	}
}

// gpioFromTopic extracts the {G} segment from a .../<section>/{G}/... topic.
func gpioFromTopic(topic, section string) (int, bool) {
	segs := strings.Split(topic, "/")
	for i, s := range segs {
		if s == section && i+1 < len(segs) {
			g, err := strconv.Atoi(segs[i+1])
			if err != nil {
				return 0, false
			}
			return g, true
		}
	}
	return 0, false
}
