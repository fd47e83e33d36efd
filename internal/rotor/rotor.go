// Package rotor drives the azimuth/elevation mount. A Rotor wraps a
// motor-specific Driver with the station's angular limits so callers get
// bounds checking in one place regardless of motor type.
package rotor

import (
	"fmt"
	"math"
)

// Pose is an azimuth/elevation pair in degrees.
type Pose struct {
	Az float64
	El float64
}

// Add returns the pose shifted by an (az, el) offset.
func (p Pose) Add(daz, del float64) Pose {
	return Pose{Az: p.Az + daz, El: p.El + del}
}

// WithinRange reports whether two poses agree to within tol degrees on both
// axes.
func WithinRange(a, b Pose, tol float64) bool {
	return math.Abs(a.Az-b.Az) < tol && math.Abs(a.El-b.El) < tol
}

// Driver is the motor-protocol interface. Goto starts motion and returns
// without waiting for convergence; Read polls the measured position.
type Driver interface {
	Goto(p Pose) error
	Read() (Pose, error)
	// Resolution is the single-step angular resolution in degrees. It doubles
	// as the default convergence tolerance.
	Resolution() float64
	Close() error
}

// Limits is one inclusive interval in degrees.
type Limits struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies inside the interval. Bounds are inclusive.
func (l Limits) Contains(v float64) bool {
	return v >= l.Lower && v <= l.Upper
}

// Rotor pairs a Driver with the station's angular limits.
type Rotor struct {
	drv      Driver
	azLimits Limits
	elLimits Limits
}

// New opens a rotor of the given motor type on the given port.
// Supported types: ROT2PROG (serial) and SIM (no hardware).
func New(motorType, port string, azLimits, elLimits Limits) (*Rotor, error) {
	var (
		drv Driver
		err error
	)
	switch motorType {
	case "ROT2PROG":
		drv, err = OpenRot2Prog(port)
	case "SIM":
		drv = NewSim(Pose{Az: azLimits.Lower, El: elLimits.Lower}, 0)
	default:
		err = fmt.Errorf("unknown motor type %q", motorType)
	}
	if err != nil {
		return nil, err
	}
	return &Rotor{drv: drv, azLimits: azLimits, elLimits: elLimits}, nil
}

// NewWithDriver wraps an already-constructed driver. Used by tests and by
// callers that manage the driver lifecycle themselves.
func NewWithDriver(drv Driver, azLimits, elLimits Limits) *Rotor {
	return &Rotor{drv: drv, azLimits: azLimits, elLimits: elLimits}
}

// AnglesWithinBounds reports whether the pose lies inside both configured
// intervals.
func (r *Rotor) AnglesWithinBounds(p Pose) bool {
	return r.azLimits.Contains(p.Az) && r.elLimits.Contains(p.El)
}

// Goto starts motion toward p. Out-of-bounds targets are rejected before
// anything is sent to the motor.
func (r *Rotor) Goto(p Pose) error {
	if !r.AnglesWithinBounds(p) {
		return fmt.Errorf("pose (%.2f, %.2f) outside motor bounds az[%.1f, %.1f] el[%.1f, %.1f]",
			p.Az, p.El, r.azLimits.Lower, r.azLimits.Upper, r.elLimits.Lower, r.elLimits.Upper)
	}
	return r.drv.Goto(p)
}

// Read polls the measured pose from the motor.
func (r *Rotor) Read() (Pose, error) {
	return r.drv.Read()
}

// Tolerance is the convergence tolerance in degrees, taken from the driver's
// single-step resolution.
func (r *Rotor) Tolerance() float64 {
	return r.drv.Resolution()
}

// Close releases the underlying driver.
func (r *Rotor) Close() error {
	return r.drv.Close()
}
