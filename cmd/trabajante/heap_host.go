//go:build !tinygo

package main

import "runtime"

// heapFree reports free heap bytes for the heartbeat payload. On host
// builds this is only approximate (Go's GC heap, not an MCU's SRAM) —
// good enough for exercising the wire format off-target.
func heapFree() uint32 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return uint32(m.HeapIdle)
}
