//go:build !tinygo

package main

import (
	"time"

	"trabajante/internal/board"
	"trabajante/internal/config"
	"trabajante/internal/gpioarbiter"
	"trabajante/internal/comms/mqtt"
	"trabajante/internal/comms/wifi"
	"trabajante/x/fmtx"
)

// Host stand-ins for the hardware surfaces a real board supplies. These let
// the full tick loop run off-target — useful for development — without
// pretending to be real silicon.

type nopI2C struct{}

func (nopI2C) Tx(addr uint16, w, r []byte) error { return nil }

type nopOneWire struct{}

func (nopOneWire) Reset() (bool, error) { return false, nil }
func (nopOneWire) WriteByte(b byte)     {}
func (nopOneWire) ReadByte() byte       { return 0 }

type nopPWM struct{}

func (nopPWM) SetDuty(channel int, duty, top uint32) error { return nil }

type nopPin struct{}

func (nopPin) SetPin(gpio int, high bool) error { return nil }

type nopAnalog struct{}

func (nopAnalog) ReadADC(gpio int) (uint16, error) { return 0, nil }

type nopDigital struct{}

func (nopDigital) ReadPin(gpio int) (bool, error) { return false, nil }

type nopNetDev struct{}

func (nopNetDev) Connect(ssid, password string) error { return nil }
func (nopNetDev) Connected() bool                      { return true }
func (nopNetDev) Disconnect()                          {}
func (nopNetDev) RSSI() (int, error)                   { return -50, nil }

func main() {
	fmtx.Printf("trabajante: booting (host simulation)\n")
	now := time.Unix(0, 0)

	app, err := NewApp(
		board.C3XIAO,
		gpioarbiter.NewFakePinDriver(),
		nopI2C{},
		nopOneWire{},
		nopPWM{},
		nopPin{},
		nopAnalog{},
		nopDigital{},
		config.NewMemBackend(),
		nopNetDev{},
		mqtt.NewFakeTransport(),
		now,
	)
	if err != nil {
		fmtx.Printf("trabajante: fatal init error: %s (entering safe mode)\n", err.Error())
	}

	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		if !app.Tick(now) {
			fmtx.Printf("trabajante: watchdog not fed at tick %d\n", i)
		}
		if app.RestartRequested() {
			fmtx.Printf("trabajante: restart requested, exiting loop\n")
			return
		}
	}
}
