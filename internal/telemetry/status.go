// Package telemetry defines the typed documents that flow out of the daemon:
// the status snapshot published on the PUB socket (and mirrored to the
// dashboard hub) and the operator-visible log entries embedded in it.
package telemetry

import "time"

// Status is the daemon state snapshot published at ~2 Hz. Field names are
// fixed; observers key on them.
type Status struct {
	BeamWidth        float64               `json:"beam_width"`
	Location         Station               `json:"location"`
	MotorAzEl        [2]float64            `json:"motor_azel"`
	MotorCmdAzEl     [2]float64            `json:"motor_cmd_azel"`
	ObjectLocs       map[string][2]float64 `json:"object_locs"`
	AzLimits         [2]float64            `json:"az_limits"`
	ElLimits         [2]float64            `json:"el_limits"`
	CenterFrequency  float64               `json:"center_frequency"`
	Bandwidth        float64               `json:"bandwidth"`
	MotorOffsets     [2]float64            `json:"motor_offsets"`
	QueuedItem       string                `json:"queued_item"`
	QueueSize        int                   `json:"queue_size"`
	EmergencyContact string                `json:"emergency_contact"`
	ErrorLogs        []LogEntry            `json:"error_logs"`
	TempCal          float64               `json:"temp_cal"`
	TempSys          float64               `json:"temp_sys"`
	CalPower         float64               `json:"cal_power"`
}

// Station is the observer location block inside a status snapshot.
type Station struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LogEntry is one operator-visible error or notice. Timestamps are Unix
// seconds with fractional part, matching the wire format observers expect.
type LogEntry struct {
	Timestamp float64 `json:"timestamp"`
	Message   string  `json:"message"`
}

// NewLogEntry stamps a message with the current wall clock.
func NewLogEntry(message string) LogEntry {
	return LogEntry{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Message:   message,
	}
}
