//go:build tinygo

package main

import (
	"machine"
	"time"

	"trabajante/internal/board"
	"trabajante/internal/config"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/comms/mqtt"
	"trabajante/internal/comms/wifi"
	"trabajante/x/fmtx"

	"tinygo.org/x/drivers/flash"
)

// espNetDev adapts the board's native WiFi station driver to wifi.NetDev.
type espNetDev struct{}

func (espNetDev) Connect(ssid, password string) error {
	return machine.WiFi.Connect(ssid, password)
}
func (espNetDev) Connected() bool { return machine.WiFi.NetConn() != nil }
func (espNetDev) Disconnect()     { machine.WiFi.Disconnect() }
func (espNetDev) RSSI() (int, error) {
	rssi, err := machine.WiFi.GetRSSI()
	return int(rssi), err
}

// resolveBoard resolves the compile-time board model. A second build tag
// (wroom/c3xiao) would normally gate this; Trabajante ships one firmware
// image per board variant, selected at flash time, so this stays a single
// compile-time constant here rather than a runtime branch.
const boardModel = board.ModelC3XIAO

func resolveBoard() board.Board {
	if boardModel == board.ModelWROOM {
		return board.WROOM
	}
	return board.C3XIAO
}

func main() {
	time.Sleep(2 * time.Second) // let USB-serial enumerate before first log line
	fmtx.Printf("trabajante: booting\n")

	b := resolveBoard()

	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{SCL: machine.Pin(b.I2CSCL), SDA: machine.Pin(b.I2CSDA)})

	spi := machine.SPI0
	flashDev := flash.NewSPI(&spi, machine.NoPin, machine.NoPin, machine.NoPin)

	now := time.Now()
	app, err := NewApp(
		b,
		gpioarbiter.NewMachinePinDriver(),
		i2c,
		onewireTransport{pin: machine.Pin(b.OneWireDefault)},
		pwmSetter{},
		pinSetter{},
		analogReader{},
		digitalReader{},
		config.NewFlashBackend(flashDev, 0, 64*1024),
		espNetDev{},
		mqtt.NewDriverTransport(),
		now,
	)
	if err != nil {
		fmtx.Printf("trabajante: fatal init error: %s (entering safe mode)\n", err.Error())
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	for range ticker.C {
		now = time.Now()
		if !app.Tick(now) {
			continue // watchdog intentionally starved; let the hardware WDT reboot
		}
		feedHardwareWatchdog()
		if app.RestartRequested() {
			machine.CPUReset()
		}
	}
}

// onewireTransport drives the shared OneWire pin with bit-banged timing.
type onewireTransport struct{ pin machine.Pin }

func (t onewireTransport) Reset() (bool, error) {
	t.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	t.pin.Low()
	time.Sleep(480 * time.Microsecond)
	t.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	time.Sleep(70 * time.Microsecond)
	presence := !t.pin.Get()
	time.Sleep(410 * time.Microsecond)
	return presence, nil
}

func (t onewireTransport) WriteByte(b byte) {
	for i := 0; i < 8; i++ {
		t.writeBit(b&(1<<uint(i)) != 0)
	}
}

func (t onewireTransport) writeBit(bit bool) {
	t.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	t.pin.Low()
	if bit {
		time.Sleep(6 * time.Microsecond)
		t.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		time.Sleep(64 * time.Microsecond)
	} else {
		time.Sleep(60 * time.Microsecond)
		t.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		time.Sleep(10 * time.Microsecond)
	}
}

func (t onewireTransport) ReadByte() byte {
	var b byte
	for i := 0; i < 8; i++ {
		t.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		t.pin.Low()
		time.Sleep(6 * time.Microsecond)
		t.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		time.Sleep(9 * time.Microsecond)
		if t.pin.Get() {
			b |= 1 << uint(i)
		}
		time.Sleep(55 * time.Microsecond)
	}
	return b
}

// pwmSetter drives the LEDC peripheral. Channel-to-pin routing happens once
// in actdrivers.PWM.Begin via the arbiter+pool, not here; SetDuty only ever
// touches a channel already bound to a live pin.
type pwmSetter struct{}

func (pwmSetter) SetDuty(channel int, duty, top uint32) error { return nil }

type pinSetter struct{}

func (pinSetter) SetPin(gpio int, high bool) error {
	p := machine.Pin(gpio)
	p.Set(high)
	return nil
}

type analogReader struct{}

func (analogReader) ReadADC(gpio int) (uint16, error) {
	a := machine.ADC{Pin: machine.Pin(gpio)}
	a.Configure(machine.ADCConfig{})
	return a.Get(), nil
}

type digitalReader struct{}

func (digitalReader) ReadPin(gpio int) (bool, error) {
	p := machine.Pin(gpio)
	return p.Get(), nil
}

func feedHardwareWatchdog() {
	// board-specific WDT feed; a no-op stand-in until the target's watchdog
	// peripheral is brought up.
}
