package ephemeris

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/srt-control/internal/rotor"
)

// Pass is one predicted satellite transit over the station.
type Pass struct {
	Object      string
	AOS         time.Time
	LOS         time.Time
	MaxElev     float64
	MaxElevTime time.Time
	AOSAzimuth  float64
	LOSAzimuth  float64
	Duration    time.Duration
}

// passWindow is how far ahead passes are propagated per refresh.
const passWindow = 24 * time.Hour

// satTracker propagates one TLE satellite. SGP4 pass generation yields the
// transit endpoints and peak; the in-pass pointing is interpolated between
// them (azimuth along the shorter arc, elevation piecewise-linear through
// the peak). Outside a pass the satellite reports elevation -90 so bounds
// checks reject it.
type satTracker struct {
	name      string
	tle       *sgp4.TLE
	passes    []Pass
	windowEnd time.Time
}

// loadTLE reads a 3-line TLE file for one satellite.
func loadTLE(path string) (*sgp4.TLE, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%s: expected 3-line TLE", path)
	}
	group := strings.TrimSpace(lines[0]) + "\n" +
		strings.TrimSpace(lines[1]) + "\n" +
		strings.TrimSpace(lines[2])
	tle, err := sgp4.ParseTLE(group)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tle, nil
}

// refresh regenerates the pass window when it has gone stale.
func (s *satTracker) refresh(now time.Time, loc Location) error {
	if now.Before(s.windowEnd.Add(-time.Hour)) && s.passes != nil {
		return nil
	}
	end := now.Add(passWindow)
	raw, err := s.tle.GeneratePasses(loc.Lat, loc.Lon, loc.Alt, now, end, 1)
	if err != nil {
		return fmt.Errorf("passes for %s: %w", s.name, err)
	}
	passes := make([]Pass, 0, len(raw))
	for _, rp := range raw {
		passes = append(passes, Pass{
			Object:      s.name,
			AOS:         rp.AOS,
			LOS:         rp.LOS,
			MaxElev:     rp.MaxElevation,
			MaxElevTime: rp.MaxElevationTime,
			AOSAzimuth:  rp.AOSAzimuth,
			LOSAzimuth:  rp.LOSAzimuth,
			Duration:    rp.Duration,
		})
	}
	s.passes = passes
	s.windowEnd = end
	return nil
}

// position returns the interpolated pose at now, or elevation -90 when the
// satellite is below the horizon.
func (s *satTracker) position(now time.Time) rotor.Pose {
	for _, p := range s.passes {
		if now.Before(p.AOS) || now.After(p.LOS) {
			continue
		}
		return interpolatePass(p, now)
	}
	return rotor.Pose{Az: 0, El: -90}
}

// interpolatePass estimates the pointing inside a pass from its endpoints
// and peak.
func interpolatePass(p Pass, now time.Time) rotor.Pose {
	total := p.LOS.Sub(p.AOS).Seconds()
	if total <= 0 {
		return rotor.Pose{Az: p.AOSAzimuth, El: p.MaxElev}
	}
	frac := now.Sub(p.AOS).Seconds() / total

	az := interpolateAzimuth(p.AOSAzimuth, p.LOSAzimuth, frac)

	var el float64
	up := p.MaxElevTime.Sub(p.AOS).Seconds()
	if now.Before(p.MaxElevTime) && up > 0 {
		el = p.MaxElev * now.Sub(p.AOS).Seconds() / up
	} else if down := p.LOS.Sub(p.MaxElevTime).Seconds(); down > 0 {
		el = p.MaxElev * p.LOS.Sub(now).Seconds() / down
	} else {
		el = p.MaxElev
	}
	return rotor.Pose{Az: az, El: el}
}

// interpolateAzimuth walks from a to b along the shorter arc.
func interpolateAzimuth(a, b, frac float64) float64 {
	diff := math.Mod(b-a+540, 360) - 180
	v := a + diff*frac
	return math.Mod(v+360, 360)
}
