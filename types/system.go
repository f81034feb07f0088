package types

// Heartbeat is published on .../system/heartbeat every 60s (QoS 0). The
// heap_free field name is pinned by the server contract and must not be
// renamed or nested.
type Heartbeat struct {
	EspID         string `json:"esp_id"`
	ZoneID        string `json:"zone_id,omitempty"`
	MasterZoneID  string `json:"master_zone_id,omitempty"`
	ZoneAssigned  bool   `json:"zone_assigned"`
	TS            int64  `json:"ts"`
	Uptime        int64  `json:"uptime"`
	HeapFree      uint32 `json:"heap_free"`
	WiFiRSSI      int32  `json:"wifi_rssi"`
	SensorCount   int    `json:"sensor_count"`
	ActuatorCount int    `json:"actuator_count"`
	Board         string `json:"board,omitempty"`
}

// ErrorEvent is one entry in the bounded error ring (§4.7), and the element
// type of Diagnostics.Errors. Nothing publishes a single ErrorEvent on
// .../system/error.
type ErrorEvent struct {
	Code      int    `json:"code"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	GPIO      *int   `json:"gpio,omitempty"`
	Message   string `json:"message"`
	TS        int64  `json:"ts"`
}

// Diagnostics bundles the most recent error events for .../system/diagnostics.
type Diagnostics struct {
	Errors []ErrorEvent `json:"errors"`
	TS     int64        `json:"ts"`
}

// SystemCommand arrives on .../system/command.
type SystemCommand struct {
	Command string `json:"command"` // "restart" | "reset"
}

// ZoneAssign arrives on .../zone/assign.
type ZoneAssign struct {
	ZoneID       string `json:"zone_id"`
	ZoneName     string `json:"zone_name,omitempty"`
	MasterZoneID string `json:"master_zone_id,omitempty"`
}

// ZoneAck is published on .../zone/ack.
type ZoneAck struct {
	ZoneID string `json:"zone_id"`
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// SubzoneAssign arrives on .../subzone/assign.
type SubzoneAssign struct {
	SubzoneID string `json:"subzone_id"`
	GPIOs     []int  `json:"gpios,omitempty"`
}

// SubzoneAck is published on .../subzone/ack.
type SubzoneAck struct {
	SubzoneID string `json:"subzone_id"`
	Status    string `json:"status"`
	TS        int64  `json:"ts"`
}
