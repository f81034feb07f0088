package drivers

import (
	"trabajante/internal/errcode"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/pwmpool"
	"trabajante/types"
	"trabajante/x/mathx"
)

// PWMSetter is the board-level surface a PWM driver needs: a duty cycle in
// [0, top] on the hardware channel the pool assigned.
type PWMSetter interface {
	SetDuty(channel int, duty, top uint32) error
}

// PWM drives a pooled hardware PWM channel. Input values are clamped to
// [0,1] (with a warning raised by the caller, §4.4 value validation) before
// conversion to a duty/top pair.
type PWM struct {
	arb      *gpioarbiter.Arbiter
	pool     *pwmpool.Pool
	hw       PWMSetter
	gpio     int
	channel  int
	top      uint32
	inverted bool
}

func NewPWM(arb *gpioarbiter.Arbiter, pool *pwmpool.Pool, hw PWMSetter, top uint32) *PWM {
	return &PWM{arb: arb, pool: pool, hw: hw, top: top}
}

func (d *PWM) Begin(cfg types.ActuatorConfig) error {
	d.gpio = cfg.GPIO
	d.inverted = cfg.Inverted
	ok, err := d.arb.RequestPin(d.gpio, gpioarbiter.OwnerActuator, cfg.ActuatorType, gpioarbiter.DirectionOutput)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.New(errcode.GPIOConflict, "PWM.Begin", "pin unavailable")
	}
	ch, err := d.pool.Acquire(d.gpio)
	if err != nil {
		d.arb.ReleasePin(d.gpio)
		return err
	}
	d.channel = ch
	return nil
}

func (d *PWM) End() {
	d.pool.Release(d.gpio)
	d.arb.ReleasePin(d.gpio)
}

func (d *PWM) SetValue(v float64) error {
	v = mathx.Clamp(v, 0.0, 1.0)
	if d.inverted {
		v = 1 - v
	}
	duty := uint32(v * float64(d.top))
	if err := d.hw.SetDuty(d.channel, duty, d.top); err != nil {
		return errcode.New(errcode.ActuatorSetFailed, "PWM.SetValue", err.Error())
	}
	return nil
}

func (d *PWM) SetBinary(on bool) error {
	if on {
		return d.SetValue(1.0)
	}
	return d.SetValue(0.0)
}

func (d *PWM) SafeDefault() error { return d.SetValue(0.0) }
