// Package daemon is the coordination engine of the telescope control
// daemon: a mutex-guarded state record shared by five activities (ephemeris
// updater, rotor servo, command ingress, status publisher, and the command
// interpreter), plus the command language that drives it.
//
// Writer discipline: the interpreter is the only writer of the tracked
// object (apart from the ephemeris updater clearing it when the object
// leaves bounds), motor offsets, radio parameters, and recording handle; the
// ephemeris updater writes object positions and, while tracking, the
// commanded pose; the rotor servo writes the measured pose. The interpreter
// clears the tracked object before writing the commanded pose for manual
// moves, so each mode has a single commanded-pose writer.
package daemon

import (
	"sync"

	"github.com/large-farva/srt-control/internal/rotor"
	"github.com/large-farva/srt-control/internal/telemetry"
)

// errorLogCap bounds the in-memory error log included in status snapshots.
const errorLogCap = 500

// State is the coordinator's shared mutable state. All access goes through
// methods so pose pairs are always read and written coherently.
type State struct {
	mu sync.Mutex

	measured  rotor.Pose
	commanded rotor.Pose
	tracked   string // object key, "" when not tracking
	offsets   [2]float64

	positions map[string]rotor.Pose

	calValues []float64
	calPower  float64

	centerFreq float64
	sampleRate float64

	queueItem string
	errorLogs []telemetry.LogEntry
}

// NewState seeds the record with the startup pose and radio parameters.
func NewState(start rotor.Pose, offsets [2]float64, centerFreq, sampleRate float64, calValues []float64, calPower float64) *State {
	return &State{
		measured:   start,
		commanded:  start.Add(offsets[0], offsets[1]),
		offsets:    offsets,
		positions:  map[string]rotor.Pose{},
		calValues:  calValues,
		calPower:   calPower,
		centerFreq: centerFreq,
		sampleRate: sampleRate,
		queueItem:  "None",
	}
}

// Measured returns the last pose read back from the rotor.
func (s *State) Measured() rotor.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measured
}

// SetMeasured records a pose read back from the rotor. Rotor servo only.
func (s *State) SetMeasured(p rotor.Pose) {
	s.mu.Lock()
	s.measured = p
	s.mu.Unlock()
}

// Commanded returns the pose the rotor is being driven toward.
func (s *State) Commanded() rotor.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commanded
}

// SetCommanded retargets the rotor.
func (s *State) SetCommanded(p rotor.Pose) {
	s.mu.Lock()
	s.commanded = p
	s.mu.Unlock()
}

// Tracked returns the current track target, or "" when idle/manual.
func (s *State) Tracked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracked
}

// SetTracked sets or clears ("") the track target. Interpreter only, except
// that the ephemeris updater clears it when the object leaves bounds.
func (s *State) SetTracked(key string) {
	s.mu.Lock()
	s.tracked = key
	s.mu.Unlock()
}

// Offsets returns the current motor offsets (Δaz, Δel).
func (s *State) Offsets() [2]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets
}

// SetOffsets replaces the motor offsets. Interpreter only.
func (s *State) SetOffsets(daz, del float64) {
	s.mu.Lock()
	s.offsets = [2]float64{daz, del}
	s.mu.Unlock()
}

// RetargetTracked applies one ephemeris refresh while tracking: commanded
// pose becomes the object position plus the current offsets, in a single
// critical section so the updater never pairs a stale offset with a fresh
// position.
func (s *State) RetargetTracked(obj rotor.Pose) {
	s.mu.Lock()
	s.commanded = obj.Add(s.offsets[0], s.offsets[1])
	s.mu.Unlock()
}

// ReplacePositions atomically swaps in a freshly computed object catalog.
// Ephemeris updater only.
func (s *State) ReplacePositions(m map[string]rotor.Pose) {
	s.mu.Lock()
	s.positions = m
	s.mu.Unlock()
}

// Position looks up one object's current position.
func (s *State) Position(key string) (rotor.Pose, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[key]
	return p, ok
}

// HasObject reports whether key names a catalog object.
func (s *State) HasObject(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.positions[key]
	return ok
}

// Calibration returns the current calibration vector and power.
func (s *State) Calibration() ([]float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calValues, s.calPower
}

// SetCalibration replaces the calibration state. Interpreter only.
func (s *State) SetCalibration(values []float64, power float64) {
	s.mu.Lock()
	s.calValues = values
	s.calPower = power
	s.mu.Unlock()
}

// CenterFreq returns the radio center frequency in Hz.
func (s *State) CenterFreq() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.centerFreq
}

// SetCenterFreq stores the radio center frequency in Hz. Interpreter only.
func (s *State) SetCenterFreq(hz float64) {
	s.mu.Lock()
	s.centerFreq = hz
	s.mu.Unlock()
}

// SampleRate returns the radio sample rate in Hz.
func (s *State) SampleRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// SetSampleRate stores the radio sample rate in Hz. Interpreter only.
func (s *State) SetSampleRate(hz float64) {
	s.mu.Lock()
	s.sampleRate = hz
	s.mu.Unlock()
}

// QueueItem returns the command currently being interpreted, or "None".
func (s *State) QueueItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueItem
}

// SetQueueItem records the command currently being interpreted.
func (s *State) SetQueueItem(item string) {
	s.mu.Lock()
	s.queueItem = item
	s.mu.Unlock()
}

// AppendLog appends a stamped entry to the operator-visible error log,
// dropping the oldest entries past the cap.
func (s *State) AppendLog(entry telemetry.LogEntry) {
	s.mu.Lock()
	s.errorLogs = append(s.errorLogs, entry)
	if len(s.errorLogs) > errorLogCap {
		s.errorLogs = s.errorLogs[len(s.errorLogs)-errorLogCap:]
	}
	s.mu.Unlock()
}

// snapshot captures every status field in one critical section so no torn
// pose pairs or mismatched calibration values are ever published.
func (s *State) snapshot() (measured, commanded rotor.Pose, offsets [2]float64, positions map[string]rotor.Pose, queueItem string, centerFreq, sampleRate, calPower float64, logs []telemetry.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	positions = make(map[string]rotor.Pose, len(s.positions))
	for k, v := range s.positions {
		positions[k] = v
	}
	logs = make([]telemetry.LogEntry, len(s.errorLogs))
	copy(logs, s.errorLogs)
	return s.measured, s.commanded, s.offsets, positions, s.queueItem, s.centerFreq, s.sampleRate, s.calPower, logs
}
