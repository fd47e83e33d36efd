package daemon

import "math"

// rasterSteps is the number of pointings in an N-point scan: a 5x5 grid
// centered on the target, spaced at half a beamwidth.
const rasterSteps = 25

// rasterOffset returns the (Δaz, Δel) offset for raster step s in 0..24.
// Rows sweep elevation, columns azimuth; the azimuth spacing is widened by
// 1/cos(el) so steps stay equal on the sky. The cosine uses the target
// elevation of the step, not the current measured elevation.
func rasterOffset(s int, beamwidth, targetEl float64) (daz, del float64) {
	del = (float64(s/5) - 2) * beamwidth * 0.5
	daz = (float64(s%5) - 2) * beamwidth * 0.5 / cosEl(targetEl+del)
	return daz, del
}

// beamSwitchOffset returns the azimuth offset for beam-switch leg j in
// {-1, 0, +1}: one beamwidth off-source either side of the target.
func beamSwitchOffset(j int, beamwidth, el float64) float64 {
	return float64(j) * beamwidth / cosEl(el)
}

// maxCosElevation caps the elevation fed to the cosine so offsets stay
// finite near zenith. The resulting swing is still large and is rejected by
// the bounds check instead of wedging the interpreter on an unreachable
// pose.
const maxCosElevation = 89.9

// cosEl is cos(el degrees) with the elevation clamped away from +-90.
func cosEl(el float64) float64 {
	if el > maxCosElevation {
		el = maxCosElevation
	} else if el < -maxCosElevation {
		el = -maxCosElevation
	}
	return math.Cos(el * math.Pi / 180)
}
