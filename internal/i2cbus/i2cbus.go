// Package i2cbus is the single shared I2C bus of spec §4.2: one bus at a
// fixed pin pair, address-range validated, serialized by the cooperative
// loop (no preemption — every Tx is called from the main tick).
//
// Grounded on the teacher's I2COwner contract (services/hal/internal/core/
// resources.go) and the Tx-with-repeated-start convention documented in
// drivers/aht20/aht20.go; uses tinygo.org/x/drivers.I2C as the hardware
// surface so sensor drivers from that module plug in directly.
package i2cbus

import (
	"trabajante/internal/errcode"

	"tinygo.org/x/drivers"
)

// Bus wraps a drivers.I2C with the address validation and presence-probe
// semantics the spec requires.
type Bus struct {
	hw drivers.I2C
}

func New(hw drivers.I2C) *Bus { return &Bus{hw: hw} }

// ValidateAddress rejects anything outside the 7-bit address range the spec
// names (0x08-0x77), including the two boundary values explicitly singled
// out in §8 (0x00 and 0xFF are rejected at configuration time — these also
// fall outside 0x08-0x77, so one check covers both).
func ValidateAddress(addr uint8) error {
	if addr < 0x08 || addr > 0x77 {
		return errcode.New(errcode.I2CDeviceNotFound, "ValidateAddress", "address out of 0x08-0x77 range")
	}
	return nil
}

// Probe checks device presence with a one-byte read, the conventional
// "is anyone home" I2C transaction.
func (b *Bus) Probe(addr uint8) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}
	if err := b.hw.Tx(uint16(addr), nil, make([]byte, 1)); err != nil {
		return errcode.New(errcode.I2CDeviceNotFound, "Probe", err.Error())
	}
	return nil
}

// Tx performs one write-then-read transaction without releasing the bus
// between phases, matching drivers.I2C's contract. SDA/SCL-stuck conditions
// surface as I2CBusError rather than I2CDeviceNotFound so callers can tell a
// wedged bus from an absent device.
func (b *Bus) Tx(addr uint8, w, r []byte) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}
	if err := b.hw.Tx(uint16(addr), w, r); err != nil {
		if isBusStuck(err) {
			return errcode.New(errcode.I2CBusError, "Tx", err.Error())
		}
		return errcode.New(errcode.I2CDeviceNotFound, "Tx", err.Error())
	}
	return nil
}

// isBusStuck heuristically classifies a driver error as a wedged bus
// (arbitration lost / clock stretch timeout) versus a plain NACK. Real
// drivers under tinygo.org/x/drivers report this via distinguishable
// sentinel errors; here we fall back to NACK-is-not-stuck, everything else
// is-stuck, which is the conservative direction for surfacing an alert.
func isBusStuck(err error) bool {
	return err != nil && err.Error() != "I2C timeout nack" && err.Error() != "i2c: nack"
}
