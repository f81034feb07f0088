package drivers

import (
	"time"

	"trabajante/internal/errcode"
	"trabajante/internal/i2cbus"
	"trabajante/internal/sensors"
	"trabajante/types"
)

// I2CMultiValue is a generic two-phase trigger/collect I2C sensor driver,
// the same shape as drivers/aht20.Device.Read: trigger a measurement, poll
// status until ready (bounded), then decode fixed fields into named
// secondary values (§4.3, "SHT31: temperature+humidity; BME280:
// temperature+humidity+pressure").
//
// Device-specific register layout is supplied by a Codec so one driver body
// serves every multi-value I2C part without per-sensor boilerplate.
type Codec interface {
	// Trigger writes whatever command starts a measurement.
	Trigger(tx func(w, r []byte) error) error
	// Collect reads the raw measurement and decodes it into named values.
	// Returns errcode.SensorReadFailed-classified errors on CRC/format faults.
	Collect(tx func(w, r []byte) error) (values map[string]float64, err error)
	// PollInterval and CollectTimeout bound the Read() busy-wait.
	PollInterval() time.Duration
	CollectTimeout() time.Duration
}

type I2CMultiValue struct {
	bus     *i2cbus.Bus
	addr    uint8
	codec   Codec
	primary string // which secondary key becomes Reading.Value/Raw (e.g. "temperature")
}

func NewI2CMultiValue(bus *i2cbus.Bus, codec Codec, primary string) *I2CMultiValue {
	return &I2CMultiValue{bus: bus, codec: codec, primary: primary}
}

func (d *I2CMultiValue) Begin(cfg types.SensorConfig) error {
	if cfg.I2CAddr == nil {
		return errcode.New(errcode.ConfigMissing, "I2CMultiValue.Begin", "i2c_addr")
	}
	if err := i2cbus.ValidateAddress(*cfg.I2CAddr); err != nil {
		return err
	}
	d.addr = *cfg.I2CAddr
	return d.bus.Probe(d.addr)
}

func (d *I2CMultiValue) End() {}

func (d *I2CMultiValue) Read() (sensors.Reading, error) {
	tx := func(w, r []byte) error { return d.bus.Tx(d.addr, w, r) }

	if err := d.codec.Trigger(tx); err != nil {
		return sensors.Reading{}, errcode.New(errcode.SensorReadFailed, "I2CMultiValue.Read", err.Error())
	}

	deadline := d.deadline()
	var values map[string]float64
	for {
		vals, err := d.codec.Collect(tx)
		if err == nil {
			values = vals
			break
		}
		if timeNow().After(deadline) {
			return sensors.Reading{}, errcode.New(errcode.SensorReadFailed, "I2CMultiValue.Read", "collect timeout")
		}
		sleep(d.codec.PollInterval())
	}

	r := sensors.Reading{Secondary: values}
	if v, ok := values[d.primary]; ok {
		r.Raw, r.Value = v, v
	}
	return r, nil
}

func (d *I2CMultiValue) deadline() time.Time {
	return timeNow().Add(d.codec.CollectTimeout())
}

// timeNow and sleep are seams for host tests; production wiring leaves them
// as time.Now / time.Sleep.
var (
	timeNow = time.Now
	sleep   = time.Sleep
)
