package gpioarbiter

import (
	"testing"

	"trabajante/internal/board"
	"trabajante/internal/errcode"
)

func newTestArbiter(t *testing.T) (*Arbiter, *FakePinDriver) {
	t.Helper()
	drv := NewFakePinDriver()
	a := New(board.WROOM, drv)
	if err := a.InitializeAllPinsToSafeMode(); err != nil {
		t.Fatalf("InitializeAllPinsToSafeMode: %v", err)
	}
	return a, drv
}

func TestInitializeAllPinsToSafeMode_IsIdempotent(t *testing.T) {
	a, drv := newTestArbiter(t)
	if !drv.SafeMode[2] {
		t.Fatalf("expected pin 2 in safe mode after init")
	}
	if err := a.InitializeAllPinsToSafeMode(); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
}

func TestRequestPin_ConflictAndRelease(t *testing.T) {
	a, _ := newTestArbiter(t)

	ok, err := a.RequestPin(5, OwnerActuator, "pump", DirectionOutput)
	if !ok || err != nil {
		t.Fatalf("first request should succeed, got ok=%v err=%v", ok, err)
	}
	ok, err = a.RequestPin(5, OwnerSensor, "flow", DirectionInput)
	if ok {
		t.Fatalf("second request on same pin should fail")
	}
	if errcode.Of(err) != errcode.GPIOConflict {
		t.Fatalf("expected GPIOConflict, got %v", err)
	}

	a.ReleasePin(5)
	if !a.IsPinAvailable(5) {
		t.Fatalf("pin should be available after release")
	}
	ok, err = a.RequestPin(5, OwnerSensor, "flow", DirectionInput)
	if !ok || err != nil {
		t.Fatalf("request after release should succeed, got ok=%v err=%v", ok, err)
	}
}

func TestRequestPin_SystemReserved(t *testing.T) {
	a, _ := newTestArbiter(t)
	ok, err := a.RequestPin(6, OwnerActuator, "x", DirectionOutput)
	if ok {
		t.Fatalf("request on system-reserved pin should fail")
	}
	if errcode.Of(err) != errcode.GPIOReserved {
		t.Fatalf("expected GPIOReserved, got %v", err)
	}
}

func TestRequestPin_InputOnlyRejectsOutput(t *testing.T) {
	a, _ := newTestArbiter(t)
	ok, err := a.RequestPin(34, OwnerActuator, "valve", DirectionOutput)
	if ok {
		t.Fatalf("output request on input-only pin should fail")
	}
	if errcode.Of(err) != errcode.GPIOInvalidMode {
		t.Fatalf("expected GPIOInvalidMode, got %v", err)
	}
	// The same pin should still be usable as a sensor input.
	ok, err = a.RequestPin(34, OwnerSensor, "ph", DirectionInput)
	if !ok || err != nil {
		t.Fatalf("input request on input-only pin should succeed, got ok=%v err=%v", ok, err)
	}
}

func TestRequestPin_HardwareFault(t *testing.T) {
	drv := NewFakePinDriver()
	a := New(board.WROOM, drv)
	_ = a.InitializeAllPinsToSafeMode()
	drv.FailPin = 12
	ok, err := a.RequestPin(12, OwnerActuator, "x", DirectionOutput)
	if ok || err == nil {
		t.Fatalf("expected failure driving pin 12")
	}
}

func TestReleasePin_SystemReservationSurvives(t *testing.T) {
	a, drv := newTestArbiter(t)
	delete(drv.SafeMode, 6) // forget the boot-time safe-mode call so only ReleasePin is observed
	a.ReleasePin(6)         // system-reserved UART/flash pin
	if _, ok := a.Reservation(6); !ok {
		t.Fatalf("system reservation must survive ReleasePin")
	}
	if drv.SafeMode[6] {
		t.Fatalf("system pin should not have been touched by release")
	}
}
