//go:build tinygo

package gpioarbiter

import "machine"

// MachinePinDriver drives real ESP32 GPIOs via TinyGo's machine package.
// This is the only file in the package that touches hardware; everything
// else is host-testable.
type MachinePinDriver struct{}

func NewMachinePinDriver() *MachinePinDriver { return &MachinePinDriver{} }

func (MachinePinDriver) SetSafeMode(gpio int) error {
	p := machine.Pin(gpio)
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return nil
}

func (MachinePinDriver) SetInput(gpio int) error {
	p := machine.Pin(gpio)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

func (MachinePinDriver) SetOutput(gpio int, initial bool) error {
	p := machine.Pin(gpio)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(initial)
	return nil
}
