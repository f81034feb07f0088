package drivers

import (
	"trabajante/internal/errcode"
	"trabajante/internal/onewirebus"
	"trabajante/internal/sensors"
	"trabajante/types"
)

const (
	ds18b20CmdConvertT   = 0x44
	ds18b20CmdReadScratch = 0xBE
)

// DS18B20 is a single-value OneWire temperature driver. Grounded on
// internal/onewirebus.Bus.ReadByDeviceROM; the server-provisioned ROM comes
// from SensorConfig.OneWireROM (§9 open question — devices are provisioned,
// not discovered, so no on-device Discover() call is needed here).
type DS18B20 struct {
	bus *onewirebus.Bus
	rom onewirebus.ROM
}

func NewDS18B20(bus *onewirebus.Bus) *DS18B20 { return &DS18B20{bus: bus} }

func (d *DS18B20) Begin(cfg types.SensorConfig) error {
	rom, err := onewirebus.ParseROM(cfg.OneWireROM)
	if err != nil {
		return err
	}
	d.rom = rom
	return nil
}

func (d *DS18B20) End() {}

func (d *DS18B20) Read() (sensors.Reading, error) {
	if _, err := d.bus.ReadByDeviceROM(d.rom, ds18b20CmdConvertT, 0); err != nil {
		return sensors.Reading{}, err
	}
	scratch, err := d.bus.ReadByDeviceROM(d.rom, ds18b20CmdReadScratch, 2)
	if err != nil {
		return sensors.Reading{}, err
	}
	if len(scratch) < 2 {
		return sensors.Reading{}, errcode.New(errcode.SensorReadFailed, "DS18B20.Read", "short scratchpad")
	}
	raw := int16(uint16(scratch[1])<<8 | uint16(scratch[0]))
	tempC := float64(raw) / 16.0
	return sensors.Reading{Raw: tempC, Value: tempC, Unit: "C"}, nil
}
