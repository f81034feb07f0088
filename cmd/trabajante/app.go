// Package main wires the Trabajante agent firmware's dependency graph and
// drives the cooperative tick loop of spec §5.
//
// Grounded on the teacher's main.go: a staged boot sequence logged through
// one Logger, then a single loop that never blocks longer than a bus
// transaction or a flash write. Where the teacher's loop fans out over a
// pub/sub bus (bus.Connection/bus.Topic) to an independently-goroutined
// HAL, Trabajante's subsystems are driven directly, tick() by tick(), from
// this one loop — the bus's job here is played by the MQTT broker itself,
// the device's only external message plane (§2).
package main

import (
	"time"

	"trabajante/internal/actuators"
	actdrivers "trabajante/internal/actuators/drivers"
	"trabajante/internal/board"
	"trabajante/internal/comms/mqtt"
	"trabajante/internal/comms/wifi"
	"trabajante/internal/config"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/health"
	"trabajante/internal/i2cbus"
	"trabajante/internal/obslog"
	"trabajante/internal/onewirebus"
	"trabajante/internal/pwmpool"
	"trabajante/internal/sensors"
	sensdrivers "trabajante/internal/sensors/drivers"
	"trabajante/types"
)

const heartbeatPeriod = 60 * time.Second

// App holds the fully wired dependency graph for one boot. Construction
// never fails outright except for the two fatal init paths named in §8
// (arbiter can't establish safe mode, storage can't open its primary
// namespace); both enter safe mode rather than panicking.
type App struct {
	board board.Board

	arb      *gpioarbiter.Arbiter
	i2c      *i2cbus.Bus
	onewire  *onewirebus.Bus
	pwm      *pwmpool.Pool
	cfg      *config.Manager
	sensorMgr *actuatorsAndSensors
	wifiMgr  *wifi.Manager
	mqttCl   *mqtt.Client
	monitor  *health.Monitor
	log      *obslog.Logger

	safeMode bool
	started  time.Time

	lastHeartbeat  time.Time
	pendingRestart bool
}

// actuatorsAndSensors bundles the two runtime-facing managers so App's
// field list reads the way the teacher groups related subsystems.
type actuatorsAndSensors struct {
	sensors   *sensors.Manager
	actuators *actuators.Manager
}

// NewApp wires every subsystem against the given hardware surfaces. pinDrv,
// i2cHW, owTransport, pwmHW, pinHW, analogHW, digitalHW, backend, netdev,
// and transport are the only hardware-touching values passed in; everything
// above them is platform-independent and host-testable.
func NewApp(
	b board.Board,
	pinDrv gpioarbiter.PinDriver,
	i2cHW i2cbusHW,
	owTransport onewirebus.Transport,
	pwmHW actdrivers.PWMSetter,
	pinHW actdrivers.PinSetter,
	analogHW sensdrivers.AnalogReader,
	digitalHW sensdrivers.DigitalReader,
	backend config.Backend,
	netdev wifi.NetDev,
	transport mqtt.Transport,
	now time.Time,
) (*App, error) {
	arb := gpioarbiter.New(b, pinDrv)
	if err := arb.InitializeAllPinsToSafeMode(); err != nil {
		return &App{safeMode: true}, err
	}

	store := config.NewStore(backend)
	cfgMgr := config.New(store)
	if err := cfgMgr.Load(); err != nil {
		return &App{safeMode: true}, err
	}

	monitor := health.NewMonitor()
	logger := obslog.New(monitor)

	i2cBus := i2cbus.New(i2cHW)
	owBus := onewirebus.New(owTransport)
	pwmPool := pwmpool.New(b.PWMChannels)

	registerSensorDrivers(i2cBus, owBus, arb, analogHW, digitalHW)
	registerActuatorDrivers(arb, pwmPool, pwmHW, pinHW)

	sensorMgr := sensors.NewManager(b.MaxSensors)
	actuatorMgr := actuators.NewManager()
	for key, sc := range cfgMgr.Sensors() {
		if err := sensorMgr.Configure(key, sc, now); err != nil {
			logger.Errorf("sensor", 1041, nil, now, "boot replay of %s: %s", key, err.Error())
		}
	}
	for _, ac := range cfgMgr.Actuators() {
		if err := actuatorMgr.Configure(ac); err != nil {
			logger.Errorf("actuator", 1051, nil, now, "boot replay of gpio %d: %s", ac.GPIO, err.Error())
		}
	}

	wifiMgr := wifi.NewManager(netdev)
	if wc := cfgMgr.WiFi(); wc.SSID != "" {
		wifiMgr.Configure(wc.SSID, wc.Password)
	}

	mc := cfgMgr.MQTT()
	clientID := cfgMgr.Device().EspID
	willTopic := topicWill(mc.KaiserID, clientID)
	mqttCl := mqtt.NewClient(transport, mqtt.ConnectOptions{
		ClientID:   clientID,
		BrokerHost: mc.BrokerHost,
		BrokerPort: mc.BrokerPort,
		UseTLS:     mc.UseTLS,
		Will: mqtt.WillMessage{
			Topic: willTopic, Payload: []byte(`{"status":"offline"}`), QoS: 1, Retain: true,
		},
	}, mqtt.NewRouter(), mqtt.NewQueue(mqtt.DefaultPublishQueueConfig()))

	app := &App{
		board:     b,
		arb:       arb,
		i2c:       i2cBus,
		onewire:   owBus,
		pwm:       pwmPool,
		cfg:       cfgMgr,
		sensorMgr: &actuatorsAndSensors{sensors: sensorMgr, actuators: actuatorMgr},
		wifiMgr:   wifiMgr,
		mqttCl:    mqttCl,
		monitor:   monitor,
		log:       logger,
		started:   now,
		lastHeartbeat: now,
	}
	app.wireRoutes(mc.KaiserID, clientID)
	app.mqttCl.OnConnect = func(t time.Time) { app.publishHeartbeat(mc.KaiserID, clientID, t) }
	return app, nil
}

// i2cbusHW matches tinygo.org/x/drivers.I2C's Tx signature without
// importing the package here — it is imported in i2cbus itself.
type i2cbusHW = interface {
	Tx(addr uint16, w, r []byte) error
}

func topicWill(kaiserID, espID string) string {
	return "kaiser/" + kaiserID + "/esp/" + espID + "/system/will"
}

// Tick advances every subsystem by one cooperative-loop iteration (§5):
// WiFi, then MQTT (which depends on WiFi being up for its own Connect to
// succeed), then sensors/actuators, then the 60s heartbeat, finishing with
// the health monitor's watchdog gate.
func (app *App) Tick(now time.Time) (feedWatchdog bool) {
	if app.safeMode {
		return false
	}

	for _, ev := range app.wifiMgr.Tick(now) {
		app.log.Warnf("wifi", int(ev.Code), now, "%s", ev.Msg)
	}

	if app.wifiMgr.Connected() {
		app.mqttCl.Tick(now)
	}

	espID := app.cfg.Device().EspID
	zoneCfg := app.cfg.Zone()
	readings, failures := app.sensorMgr.sensors.Tick(now, espID, zoneCfg.ZoneID)
	for _, err := range failures {
		app.log.Errorf("sensor", 1040, nil, now, "%s", err.Error())
	}
	for _, r := range readings {
		app.publishSensorReading(app.cfg.MQTT().KaiserID, espID, r, now)
	}

	for _, alert := range app.sensorMgr.actuators.Tick(now) {
		app.log.Warnf("actuator", 1050, now, "%s", alert.Reason)
		app.publishActuatorAlert(app.cfg.MQTT().KaiserID, espID, alert, now)
	}

	if now.Sub(app.lastHeartbeat) >= heartbeatPeriod {
		app.publishHeartbeat(app.cfg.MQTT().KaiserID, espID, now)
	}

	if app.monitor.HasPendingCritical() {
		app.publishDiagnostics(app.cfg.MQTT().KaiserID, espID, now)
	}

	return app.monitor.FeedWatchdog()
}

// RestartRequested reports whether a .../system/command "restart"/"reset"
// has been received; the platform main loop acts on it between ticks.
func (app *App) RestartRequested() bool { return app.pendingRestart }

func (app *App) publishSensorReading(kaiserID, espID string, r sensors.KeyedReading, now time.Time) {
	payload, err := marshalJSON(r.SensorReading)
	if err != nil {
		return
	}
	topic := "kaiser/" + kaiserID + "/esp/" + espID + "/sensor/" + r.Key + "/data"
	app.mqttCl.Publish(topic, payload, 1, false, now)
}

func (app *App) publishActuatorAlert(kaiserID, espID string, alert types.ActuatorAlert, now time.Time) {
	payload, err := marshalJSON(alert)
	if err != nil {
		return
	}
	topic := "kaiser/" + kaiserID + "/esp/" + espID + "/actuator/" + itoa(alert.GPIO) + "/alert"
	app.mqttCl.Publish(topic, payload, 1, false, now)
}

func (app *App) publishHeartbeat(kaiserID, espID string, now time.Time) {
	app.lastHeartbeat = now
	zc := app.cfg.Zone()
	hb := types.Heartbeat{
		EspID:         espID,
		ZoneID:        zc.ZoneID,
		MasterZoneID:  zc.MasterZoneID,
		ZoneAssigned:  zc.ZoneID != "",
		TS:            now.Unix(),
		Uptime:        int64(now.Sub(app.started).Seconds()),
		HeapFree:      heapFree(),
		WiFiRSSI:      int32(app.wifiMgr.RSSI()),
		SensorCount:   app.sensorMgr.sensors.Count(),
		ActuatorCount: app.sensorMgr.actuators.Count(),
		Board:         string(app.board.Model),
	}
	payload, err := marshalJSON(hb)
	if err != nil {
		return
	}
	app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/system/heartbeat", payload, 0, false, now)
}

func (app *App) publishDiagnostics(kaiserID, espID string, now time.Time) {
	events := app.monitor.DrainCritical()
	diag := types.Diagnostics{Errors: events, TS: now.Unix()}
	payload, err := marshalJSON(diag)
	if err != nil {
		return
	}
	app.mqttCl.Publish("kaiser/"+kaiserID+"/esp/"+espID+"/system/diagnostics", payload, 1, false, now)
}
