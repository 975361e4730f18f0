package types

import "time"

// Telemetry mirrors one transmitted frame for consumers that cannot hear 868 MHz.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Battery     *float64  `json:"battery_v,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`

	Address  uint8  `json:"address"`
	DataType string `json:"data_type"`
	Frame    string `json:"frame"`
	Checksum uint8  `json:"checksum"`
}
