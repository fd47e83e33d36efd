package rotor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsInclusive(t *testing.T) {
	l := Limits{Lower: 0, Upper: 360}
	assert.True(t, l.Contains(0))
	assert.True(t, l.Contains(360))
	assert.False(t, l.Contains(-0.01))
	assert.False(t, l.Contains(360.01))
}

func TestWithinRange(t *testing.T) {
	a := Pose{Az: 180, El: 45}
	assert.True(t, WithinRange(a, Pose{Az: 180.4, El: 44.6}, 0.5))
	assert.False(t, WithinRange(a, Pose{Az: 180.6, El: 45}, 0.5))
	assert.False(t, WithinRange(a, Pose{Az: 180, El: 45.5}, 0.5))
}

func TestRotorRejectsOutOfBounds(t *testing.T) {
	r := NewWithDriver(NewSim(Pose{}, 0), Limits{Lower: 0, Upper: 360}, Limits{Lower: 0, Upper: 85})

	assert.Error(t, r.Goto(Pose{Az: 10, El: 89}))
	assert.NoError(t, r.Goto(Pose{Az: 10, El: 85}))

	// The in-bounds goto reached the driver.
	p, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, Pose{Az: 10, El: 85}, p)
}

func TestSimInstantSlew(t *testing.T) {
	s := NewSim(Pose{Az: 0, El: 0}, 0)
	require.NoError(t, s.Goto(Pose{Az: 200, El: 40}))

	p, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, Pose{Az: 200, El: 40}, p)
}

func TestSimRampedSlewMovesMonotonically(t *testing.T) {
	s := NewSim(Pose{Az: 0, El: 0}, 5)
	require.NoError(t, s.Goto(Pose{Az: 90, El: 45}))

	p, err := s.Read()
	require.NoError(t, err)
	// At 5 deg/s the mount cannot have teleported.
	assert.Less(t, p.Az, 90.0)
	assert.LessOrEqual(t, p.El, 45.0)
}

func TestApproach(t *testing.T) {
	assert.Equal(t, 5.0, approach(0, 10, 5))
	assert.Equal(t, 10.0, approach(8, 10, 5))
	assert.Equal(t, -5.0, approach(0, -10, 5))
}

func TestRot2ProgFrames(t *testing.T) {
	frame, err := encodeSetFrame(Pose{Az: 123.5, El: 45.0}, 2)
	require.NoError(t, err)
	require.Len(t, frame, 13)
	assert.Equal(t, byte(rot2progStart), frame[0])
	assert.Equal(t, byte(rot2progSetCmd), frame[11])
	assert.Equal(t, byte(rot2progEnd), frame[12])
	// (123.5 + 360) * 2 = 967 -> "0967"
	assert.Equal(t, []byte("0967"), frame[1:5])
	// (45 + 360) * 2 = 810 -> "0810"
	assert.Equal(t, []byte("0810"), frame[6:10])

	status := statusFrame()
	assert.Equal(t, byte(rot2progGetCmd), status[11])
}

func TestRot2ProgDecodeStatus(t *testing.T) {
	// Controller reply for az 123.5, el 45.0 with divisor 2: digits are raw
	// byte values, angle = H1*100 + H2*10 + H3 + H4/10 - 360.
	reply := []byte{rot2progStart, 4, 8, 3, 5, 2, 4, 0, 5, 0, 2, rot2progEnd}
	p, divisor, err := decodeStatusFrame(reply)
	require.NoError(t, err)
	assert.InDelta(t, 123.5, p.Az, 1e-9)
	assert.InDelta(t, 45.0, p.El, 1e-9)
	assert.Equal(t, 2.0, divisor)

	_, _, err = decodeStatusFrame([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestNewUnknownMotorType(t *testing.T) {
	_, err := New("WARP_DRIVE", "/dev/null", Limits{}, Limits{})
	assert.Error(t, err)
}

func TestEncodeSetFrameRange(t *testing.T) {
	_, err := encodeSetFrame(Pose{Az: 5000, El: 0}, 2)
	assert.Error(t, err)
}
