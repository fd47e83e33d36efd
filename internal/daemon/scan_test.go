package daemon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRasterOffsetGrid(t *testing.T) {
	const beam = 2.0

	// Center step of the 5x5 grid is exactly on-source.
	daz, del := rasterOffset(12, beam, 40)
	assert.InDelta(t, 0, daz, 1e-12)
	assert.InDelta(t, 0, del, 1e-12)

	// First step: row -2, column -2, az widened by 1/cos(target el).
	daz, del = rasterOffset(0, beam, 40)
	wantDel := -2.0 * beam * 0.5
	wantDaz := -2.0 * beam * 0.5 / math.Cos((40+wantDel)*math.Pi/180)
	assert.InDelta(t, wantDel, del, 1e-12)
	assert.InDelta(t, wantDaz, daz, 1e-12)

	// Elevation rows step once per five scan indices.
	_, del0 := rasterOffset(0, beam, 40)
	_, del4 := rasterOffset(4, beam, 40)
	_, del5 := rasterOffset(5, beam, 40)
	assert.Equal(t, del0, del4)
	assert.InDelta(t, del0+beam*0.5, del5, 1e-12)
}

func TestRasterOffsetUsesTargetElevation(t *testing.T) {
	// The cosine correction uses el + Δel, not the base elevation: the top
	// and bottom rows of the grid get different az spacing.
	dazTop, _ := rasterOffset(20, 2, 60)   // row +2
	dazBottom, _ := rasterOffset(0, 2, 60) // row -2
	assert.Greater(t, math.Abs(dazTop), math.Abs(dazBottom))
}

func TestBeamSwitchOffset(t *testing.T) {
	const beam = 7.0

	assert.InDelta(t, 0, beamSwitchOffset(0, beam, 30), 1e-12)

	want := beam / math.Cos(30*math.Pi/180)
	assert.InDelta(t, want, beamSwitchOffset(1, beam, 30), 1e-12)
	assert.InDelta(t, -want, beamSwitchOffset(-1, beam, 30), 1e-12)
}

func TestCosElClampNearZenith(t *testing.T) {
	// At el 90 the correction would divide by zero; the clamp keeps the
	// offset finite (and large), leaving rejection to the bounds check.
	daz, _ := rasterOffset(0, 2, 90)
	assert.False(t, math.IsNaN(daz))
	assert.False(t, math.IsInf(daz, 0))

	daz2 := beamSwitchOffset(1, 7, 90)
	assert.False(t, math.IsInf(daz2, 0))
	assert.Greater(t, math.Abs(daz2), 7.0)
}
