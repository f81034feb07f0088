// Package gpioarbiter is the single source of truth for GPIO pin usage
// (spec §4.1). It is grounded on the teacher's unified pin-function model in
// services/hal/internal/core/resources.go (PinFunc/GPIOHandle/ResourceRegistry)
// generalized from "claim a function" to "reserve a pin for an owner", plus
// the board-policy split the teacher keeps in services/hal/internal/platform.
package gpioarbiter

import (
	"sync"

	"trabajante/internal/board"
	"trabajante/internal/errcode"
)

// Owner classifies who holds a reservation.
type Owner string

const (
	OwnerSensor   Owner = "sensor"
	OwnerActuator Owner = "actuator"
	OwnerSystem   Owner = "system"
)

// Direction is the electrical direction a reservation was made for.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// Reservation records who owns a pin and why.
type Reservation struct {
	GPIO      int
	Owner     Owner
	Component string
	Direction Direction
}

// PinDriver is the minimal hardware surface the arbiter needs in order to put
// a pin into a given electrical state. A board package supplies the real
// implementation; tests supply a fake.
type PinDriver interface {
	// SetSafeMode puts gpio into high-impedance input with pull-up where the
	// pin supports it.
	SetSafeMode(gpio int) error
	SetInput(gpio int) error
	SetOutput(gpio int, initial bool) error
}

// Arbiter is the GPIO arbiter of spec §4.1. Every method holds mu, so calls
// are serialized; in the firmware the cooperative loop is its only caller,
// matching §5's single-writer rule for the reservation table.
type Arbiter struct {
	mu    sync.Mutex
	board board.Board
	drv   PinDriver

	reservations map[int]Reservation
	safeMode     bool
}

// New constructs an arbiter for the given board and pin driver. The arbiter
// does not reach into safe mode until InitializeAllPinsToSafeMode is called.
func New(b board.Board, drv PinDriver) *Arbiter {
	return &Arbiter{
		board:        b,
		drv:          drv,
		reservations: make(map[int]Reservation),
	}
}

// InitializeAllPinsToSafeMode sets every board-known pin to high-impedance
// input with pull-up before any driver initializes. Idempotent.
func (a *Arbiter) InitializeAllPinsToSafeMode() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.board.AllPins() {
		if err := a.drv.SetSafeMode(p); err != nil {
			return errcode.New(errcode.GPIOInitFailed, "InitializeAllPinsToSafeMode", err.Error())
		}
	}
	for p := range a.board.SystemReserved {
		a.reservations[p] = Reservation{GPIO: p, Owner: OwnerSystem, Component: "reserved", Direction: DirectionInput}
	}
	a.safeMode = true
	return nil
}

// RequestPin attempts to reserve gpio for owner/component in the given
// direction. Atomic: the check and the reservation happen under mu.
func (a *Arbiter) RequestPin(gpio int, owner Owner, component string, dir Direction) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gpio < a.board.GPIOMin || gpio > a.board.GPIOMax {
		return false, errcode.New(errcode.GPIOInvalidMode, "RequestPin", "gpio out of range")
	}
	if existing, ok := a.reservations[gpio]; ok {
		if existing.Owner == OwnerSystem {
			return false, errcode.New(errcode.GPIOReserved, "RequestPin", "pin is system reserved")
		}
		return false, errcode.New(errcode.GPIOConflict, "RequestPin", "pin already reserved")
	}
	if dir == DirectionOutput && a.board.InputOnly[gpio] {
		return false, errcode.New(errcode.GPIOInvalidMode, "RequestPin", "pin is input-only")
	}

	var err error
	if dir == DirectionOutput {
		err = a.drv.SetOutput(gpio, false)
	} else {
		err = a.drv.SetInput(gpio)
	}
	if err != nil {
		return false, errcode.New(errcode.GPIOInvalidMode, "RequestPin", err.Error())
	}

	a.reservations[gpio] = Reservation{GPIO: gpio, Owner: owner, Component: component, Direction: dir}
	return true, nil
}

// ReleasePin reverts gpio to safe mode. No-op if not reserved, or if the
// reservation is system-owned (system reservations survive driver teardown).
func (a *Arbiter) ReleasePin(gpio int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.reservations[gpio]
	if !ok || r.Owner == OwnerSystem {
		return
	}
	delete(a.reservations, gpio)
	_ = a.drv.SetSafeMode(gpio)
}

// IsPinAvailable reports whether gpio has no reservation. Pure query.
func (a *Arbiter) IsPinAvailable(gpio int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.reservations[gpio]
	return !ok
}

// Reservation returns the current reservation for gpio, if any.
func (a *Arbiter) Reservation(gpio int) (Reservation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.reservations[gpio]
	return r, ok
}

// Snapshot returns a copy of all current reservations, used by health/
// diagnostics reporting and by tests asserting the universal invariant that
// every reserved pin has exactly one reservation record.
func (a *Arbiter) Snapshot() map[int]Reservation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]Reservation, len(a.reservations))
	for k, v := range a.reservations {
		out[k] = v
	}
	return out
}
