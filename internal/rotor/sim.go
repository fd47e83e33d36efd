package rotor

import (
	"math"
	"sync"
	"time"
)

// Sim is an in-process rotor driver for hardware-less runs and tests. It
// slews toward the last commanded pose at a fixed rate; a rate of zero means
// the mount teleports on the next Read.
type Sim struct {
	mu      sync.Mutex
	pos     Pose
	target  Pose
	rate   float64 // degrees per second per axis
	lastAt time.Time
}

// NewSim creates a simulated driver starting at the given pose. rate is the
// per-axis slew rate in degrees per second; zero or negative slews instantly.
func NewSim(start Pose, rate float64) *Sim {
	return &Sim{pos: start, target: start, rate: rate, lastAt: time.Now()}
}

// Goto records the new target. Motion happens lazily inside Read.
func (s *Sim) Goto(p Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	s.target = p
	return nil
}

// Read advances the simulated mount and returns its position.
func (s *Sim) Read() (Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return s.pos, nil
}

// Resolution matches the Rot2Prog default of half a degree so simulated runs
// converge with the same tolerance as hardware.
func (s *Sim) Resolution() float64 {
	return 0.5
}

// Close is a no-op.
func (s *Sim) Close() error {
	return nil
}

// advance moves pos toward target based on elapsed time. Callers hold mu.
func (s *Sim) advance(now time.Time) {
	dt := now.Sub(s.lastAt).Seconds()
	s.lastAt = now
	if s.rate <= 0 {
		s.pos = s.target
		return
	}
	step := s.rate * dt
	s.pos.Az = approach(s.pos.Az, s.target.Az, step)
	s.pos.El = approach(s.pos.El, s.target.El, step)
}

// approach moves cur toward want by at most step degrees.
func approach(cur, want, step float64) float64 {
	d := want - cur
	if math.Abs(d) <= step {
		return want
	}
	return cur + math.Copysign(step, d)
}
