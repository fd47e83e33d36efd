// Package ephemeris computes apparent azimuth/elevation for the objects in
// the station catalog: fixed (RA, Dec) sources, the Sun and Moon from
// low-precision analytic series, and TLE satellites via SGP4 pass
// propagation.
package ephemeris

import (
	"math"
	"time"

	"github.com/large-farva/srt-control/internal/rotor"
)

const deg = math.Pi / 180

// Location is the observer site.
type Location struct {
	Lat float64 // degrees North
	Lon float64 // degrees East
	Alt float64 // meters above sea level
}

// julianDate converts a wall-clock time to a Julian date.
func julianDate(t time.Time) float64 {
	return float64(t.UnixNano())/86400e9 + 2440587.5
}

// gmstDegrees returns Greenwich mean sidereal time in degrees, normalized to
// [0, 360).
func gmstDegrees(t time.Time) float64 {
	jd := julianDate(t)
	d := jd - 2451545.0
	gmst := 280.46061837 + 360.98564736629*d
	return normalizeDegrees(gmst)
}

// localSiderealDegrees is GMST shifted to the observer's longitude.
func localSiderealDegrees(t time.Time, lonDeg float64) float64 {
	return normalizeDegrees(gmstDegrees(t) + lonDeg)
}

// radecToAzEl converts equatorial coordinates (RA in hours, Dec in degrees)
// to horizontal coordinates at the given time and site. Azimuth is measured
// from North through East.
func radecToAzEl(raHours, decDeg float64, t time.Time, loc Location) rotor.Pose {
	lst := localSiderealDegrees(t, loc.Lon)
	ha := normalizeDegrees(lst-raHours*15) * deg
	dec := decDeg * deg
	lat := loc.Lat * deg

	sinEl := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	el := math.Asin(clamp(sinEl, -1, 1))

	az := math.Atan2(
		-math.Cos(dec)*math.Sin(ha),
		math.Sin(dec)*math.Cos(lat)-math.Cos(dec)*math.Sin(lat)*math.Cos(ha),
	)

	return rotor.Pose{
		Az: normalizeDegrees(az / deg),
		El: el / deg,
	}
}

// sunRADec returns the Sun's apparent RA (hours) and Dec (degrees) from the
// low-precision solar series; good to a couple hundredths of a degree, far
// inside a radio beam.
func sunRADec(t time.Time) (raHours, decDeg float64) {
	d := julianDate(t) - 2451545.0

	g := normalizeDegrees(357.529+0.98560028*d) * deg // mean anomaly
	q := normalizeDegrees(280.459 + 0.98564736*d)     // mean longitude
	l := normalizeDegrees(q+1.915*math.Sin(g)+0.020*math.Sin(2*g)) * deg

	e := (23.439 - 0.00000036*d) * deg // obliquity of the ecliptic

	ra := math.Atan2(math.Cos(e)*math.Sin(l), math.Cos(l))
	dec := math.Asin(math.Sin(e) * math.Sin(l))

	return normalizeDegrees(ra/deg) / 15, dec / deg
}

// moonRADec returns the Moon's geocentric RA (hours) and Dec (degrees) from
// a truncated lunar series, accurate to a fraction of a degree.
func moonRADec(t time.Time) (raHours, decDeg float64) {
	d := julianDate(t) - 2451545.0

	lp := normalizeDegrees(218.316 + 13.176396*d) // mean longitude
	m := normalizeDegrees(134.963+13.064993*d) * deg  // mean anomaly
	f := normalizeDegrees(93.272+13.229350*d) * deg   // argument of latitude

	lon := normalizeDegrees(lp+6.289*math.Sin(m)) * deg
	lat := 5.128 * math.Sin(f) * deg

	e := 23.439 * deg

	sinDec := math.Sin(lat)*math.Cos(e) + math.Cos(lat)*math.Sin(e)*math.Sin(lon)
	dec := math.Asin(clamp(sinDec, -1, 1))
	ra := math.Atan2(
		math.Sin(lon)*math.Cos(e)-math.Tan(lat)*math.Sin(e),
		math.Cos(lon),
	)

	return normalizeDegrees(ra/deg) / 15, dec / deg
}

// normalizeDegrees wraps an angle into [0, 360).
func normalizeDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
