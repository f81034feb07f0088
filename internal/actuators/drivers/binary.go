// Package drivers implements concrete actuators.Driver instances: binary
// (on/off, also used for valve/pump) and PWM-controlled outputs.
package drivers

import (
	"trabajante/internal/errcode"
	"trabajante/internal/gpioarbiter"
	"trabajante/types"
)

// PinSetter is the board-level surface a binary driver needs.
type PinSetter interface {
	SetPin(gpio int, high bool) error
}

// Binary drives a GPIO high/low, honoring the inverted flag (electrical
// sense, not logical sense, per §4.4 value validation).
type Binary struct {
	arb      *gpioarbiter.Arbiter
	hw       PinSetter
	gpio     int
	inverted bool
}

func NewBinary(arb *gpioarbiter.Arbiter, hw PinSetter) *Binary {
	return &Binary{arb: arb, hw: hw}
}

func (d *Binary) Begin(cfg types.ActuatorConfig) error {
	d.gpio = cfg.GPIO
	d.inverted = cfg.Inverted
	ok, err := d.arb.RequestPin(d.gpio, gpioarbiter.OwnerActuator, cfg.ActuatorType, gpioarbiter.DirectionOutput)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.New(errcode.GPIOConflict, "Binary.Begin", "pin unavailable")
	}
	return nil
}

func (d *Binary) End() { d.arb.ReleasePin(d.gpio) }

func (d *Binary) SetBinary(on bool) error {
	electrical := on != d.inverted
	if err := d.hw.SetPin(d.gpio, electrical); err != nil {
		return errcode.New(errcode.ActuatorSetFailed, "Binary.SetBinary", err.Error())
	}
	return nil
}

// SetValue treats any non-zero value as "on", the PWM-to-binary fallback for
// a binary-typed actuator sent a fractional command.
func (d *Binary) SetValue(v float64) error { return d.SetBinary(v != 0) }

func (d *Binary) SafeDefault() error { return d.SetBinary(false) }
