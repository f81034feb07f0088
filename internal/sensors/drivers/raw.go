// Package drivers implements concrete sensors.Driver instances: the default
// raw-passthrough fallback, I2C multi-value sensors, and OneWire sensors.
//
// Grounded on drivers/aht20 for the I2C two-phase trigger/collect pattern and
// on internal/gpioarbiter for pin acquisition.
package drivers

import (
	"trabajante/internal/errcode"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/sensors"
	"trabajante/types"
)

// AnalogReader is the board-level surface an analog GPIO driver needs: one
// ADC sample in [0, adcMax].
type AnalogReader interface {
	ReadADC(gpio int) (uint16, error)
}

// DigitalReader is the board-level surface a digital GPIO driver needs.
type DigitalReader interface {
	ReadPin(gpio int) (bool, error)
}

// RawAnalog is the default driver for an unrecognized sensor_type on an
// analog interface: it reports the raw ADC count and leaves calibration to
// the server (§4.3, "device performs no scientific calibration locally").
type RawAnalog struct {
	arb     *gpioarbiter.Arbiter
	hw      AnalogReader
	gpio    int
	adcMax  float64
}

func NewRawAnalog(arb *gpioarbiter.Arbiter, hw AnalogReader) *RawAnalog {
	return &RawAnalog{arb: arb, hw: hw, adcMax: 4095}
}

func (d *RawAnalog) Begin(cfg types.SensorConfig) error {
	if cfg.GPIO == nil {
		return errcode.New(errcode.GPIOInvalidMode, "RawAnalog.Begin", "analog sensor requires gpio")
	}
	d.gpio = *cfg.GPIO
	ok, err := d.arb.RequestPin(d.gpio, gpioarbiter.OwnerSensor, cfg.SensorType, gpioarbiter.DirectionInput)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.New(errcode.GPIOConflict, "RawAnalog.Begin", "pin unavailable")
	}
	return nil
}

func (d *RawAnalog) End() { d.arb.ReleasePin(d.gpio) }

func (d *RawAnalog) Read() (sensors.Reading, error) {
	raw, err := d.hw.ReadADC(d.gpio)
	if err != nil {
		return sensors.Reading{}, errcode.New(errcode.SensorReadFailed, "RawAnalog.Read", err.Error())
	}
	return sensors.Reading{Raw: float64(raw), Value: float64(raw) / d.adcMax, Unit: ""}, nil
}

// RawDigital is the default driver for a digital interface: reports 0/1.
type RawDigital struct {
	arb  *gpioarbiter.Arbiter
	hw   DigitalReader
	gpio int
}

func NewRawDigital(arb *gpioarbiter.Arbiter, hw DigitalReader) *RawDigital {
	return &RawDigital{arb: arb, hw: hw}
}

func (d *RawDigital) Begin(cfg types.SensorConfig) error {
	if cfg.GPIO == nil {
		return errcode.New(errcode.GPIOInvalidMode, "RawDigital.Begin", "digital sensor requires gpio")
	}
	d.gpio = *cfg.GPIO
	ok, err := d.arb.RequestPin(d.gpio, gpioarbiter.OwnerSensor, cfg.SensorType, gpioarbiter.DirectionInput)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.New(errcode.GPIOConflict, "RawDigital.Begin", "pin unavailable")
	}
	return nil
}

func (d *RawDigital) End() { d.arb.ReleasePin(d.gpio) }

func (d *RawDigital) Read() (sensors.Reading, error) {
	high, err := d.hw.ReadPin(d.gpio)
	if err != nil {
		return sensors.Reading{}, errcode.New(errcode.SensorReadFailed, "RawDigital.Read", err.Error())
	}
	v := 0.0
	if high {
		v = 1.0
	}
	return sensors.Reading{Raw: v, Value: v}, nil
}
