//go:build tinygo

package main

import "runtime"

// heapFree reports free heap bytes for the heartbeat payload (§6: field
// name heap_free is pinned by the server contract).
func heapFree() uint32 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return uint32(m.HeapIdle)
}
