package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/srt-control/internal/config"
	"github.com/large-farva/srt-control/internal/rotor"
)

// fakeRadio records every RPC call in order.
type fakeRadio struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	freq    float64
	samp    float64
	running bool
}

func (f *fakeRadio) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return fmt.Errorf("%s: connection refused", name)
	}
	return nil
}

func (f *fakeRadio) SetFreq(hz float64) error {
	if err := f.record("set_freq"); err != nil {
		return err
	}
	f.mu.Lock()
	f.freq = hz
	f.mu.Unlock()
	return nil
}

func (f *fakeRadio) SetSampRate(hz float64) error {
	if err := f.record("set_samp_rate"); err != nil {
		return err
	}
	f.mu.Lock()
	f.samp = hz
	f.mu.Unlock()
	return nil
}

func (f *fakeRadio) SetMotorAz(float64) error { return f.record("set_motor_az") }
func (f *fakeRadio) SetMotorEl(float64) error { return f.record("set_motor_el") }
func (f *fakeRadio) SetTSys(float64) error    { return f.record("set_tsys") }
func (f *fakeRadio) SetTCal(float64) error    { return f.record("set_tcal") }
func (f *fakeRadio) SetCalPwr(float64) error  { return f.record("set_cal_pwr") }

func (f *fakeRadio) SetCalValues([]float64) error { return f.record("set_cal_values") }

func (f *fakeRadio) SetIsRunning(running bool) error {
	if err := f.record("set_is_running"); err != nil {
		return err
	}
	f.mu.Lock()
	f.running = running
	f.mu.Unlock()
	return nil
}

func (f *fakeRadio) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRadio) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// fakeRecorder stands in for an external radio task.
type fakeRecorder struct {
	mu         sync.Mutex
	rate       float64
	started    bool
	terminated bool
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeRecorder) Terminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = true
}

func (f *fakeRecorder) isTerminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated
}

// fakeTracker is a PositionSource whose objects move on demand.
type fakeTracker struct {
	mu      sync.Mutex
	objects map[string]rotor.Pose
}

func (f *fakeTracker) UpdateAll(time.Time) {}

func (f *fakeTracker) Positions() map[string]rotor.Pose {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]rotor.Pose, len(f.objects))
	for k, v := range f.objects {
		out[k] = v
	}
	return out
}

func (f *fakeTracker) move(key string, p rotor.Pose) {
	f.mu.Lock()
	f.objects[key] = p
	f.mu.Unlock()
}

type testRig struct {
	d         *Daemon
	radio     *fakeRadio
	tracker   *fakeTracker
	recorders []*fakeRecorder
	mu        sync.Mutex
}

func (r *testRig) newRecorder(rate float64) Recorder {
	rec := &fakeRecorder{rate: rate}
	r.mu.Lock()
	r.recorders = append(r.recorders, rec)
	r.mu.Unlock()
	return rec
}

func (r *testRig) recorderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recorders)
}

func (r *testRig) recorder(i int) *fakeRecorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorders[i]
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	cfg.SaveDirectory = t.TempDir()
	cfg.RadioNumBins = 8
	cfg.Beamwidth = 2
	return cfg
}

// newTestRig builds a daemon on the simulated rotor with all externals
// faked and every interval shrunk for test speed.
func newTestRig(t *testing.T, cfg config.Config) *testRig {
	t.Helper()

	rig := &testRig{
		radio:   &fakeRadio{},
		tracker: &fakeTracker{objects: map[string]rotor.Pose{}},
	}

	rot := rotor.NewWithDriver(
		rotor.NewSim(rotor.Pose{Az: cfg.StowLocation.Azimuth, El: cfg.StowLocation.Elevation}, 0),
		rotor.Limits{Lower: cfg.AzLimits.Lower, Upper: cfg.AzLimits.Upper},
		rotor.Limits{Lower: cfg.ElLimits.Lower, Upper: cfg.ElLimits.Upper},
	)

	d, err := New(Options{
		Logger:      log.New(io.Discard, "", 0),
		Cfg:         cfg,
		Tracker:     rig.tracker,
		Rotor:       rot,
		Radio:       rig.radio,
		Process:     &fakeRecorder{},
		NewRecorder: rig.newRecorder,
		Calibrate:   func(context.Context) error { return nil },
	})
	require.NoError(t, err)

	d.iv = intervals{
		ephemerisPeriod: 5 * time.Millisecond,
		servoPoll:       time.Millisecond,
		servoTimeout:    200 * time.Millisecond,
		statusPeriod:    5 * time.Millisecond,
		waitPoll:        time.Millisecond,
		dwell:           time.Millisecond,
		startupDelay:    time.Millisecond,
		paramSpacing:    time.Millisecond,
	}

	rig.d = d
	return rig
}

// startWorkers launches the servo and ephemeris loops for interpreter-level
// tests.
func (r *testRig) startWorkers(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.d.state.ReplacePositions(r.tracker.Positions())
	go r.d.servoLoop(ctx)
	go r.d.ephemerisLoop(ctx)
	return ctx
}

func logContains(s *State, substr string) bool {
	_, _, _, _, _, _, _, _, logs := s.snapshot()
	for _, e := range logs {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestManualPoint(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	quit := rig.d.execute(ctx, "azel 180 45")
	assert.False(t, quit)

	assert.Equal(t, rotor.Pose{Az: 180, El: 45}, rig.d.state.Commanded())
	assert.Equal(t, "", rig.d.state.Tracked())
	assert.True(t, rotor.WithinRange(rig.d.state.Measured(), rotor.Pose{Az: 180, El: 45}, 0.5))
}

func TestOffsetThenManualPoint(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "offset 1.5 0.5")
	rig.d.execute(ctx, "azel 100 40")

	assert.Equal(t, rotor.Pose{Az: 101.5, El: 40.5}, rig.d.state.Commanded())
}

func TestManualPointOutOfBounds(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	before := rig.d.state.Commanded()
	rig.d.execute(ctx, "azel 10 95")

	assert.Equal(t, before, rig.d.state.Commanded())
	assert.True(t, logContains(rig.d.state, "Not in Motor Bounds"))
}

func TestStowIsIdempotent(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "azel 180 45")
	rig.d.execute(ctx, "stow")
	rig.d.execute(ctx, "stow")

	stow := rotor.Pose{Az: 0, El: 0}
	assert.Equal(t, stow, rig.d.state.Commanded())
	assert.Equal(t, "", rig.d.state.Tracked())
}

func TestTrackObject(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	rig.tracker.move("Sun", rotor.Pose{Az: 120, El: 30})
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "Sun")

	assert.Equal(t, "Sun", rig.d.state.Tracked())
	assert.Equal(t, rotor.Pose{Az: 120, El: 30}, rig.d.state.Commanded())

	// The ephemeris updater follows the object as it moves.
	rig.tracker.move("Sun", rotor.Pose{Az: 121, El: 30})
	require.Eventually(t, func() bool {
		return rig.d.state.Commanded() == rotor.Pose{Az: 121, El: 30}
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Sun", rig.d.state.Tracked())
}

func TestTrackObjectOutOfBounds(t *testing.T) {
	cfg := testConfig(t)
	cfg.ElLimits.Upper = 85
	rig := newTestRig(t, cfg)
	rig.tracker.move("Polaris", rotor.Pose{Az: 0, El: 89.9})
	ctx := rig.startWorkers(t)

	before := rig.d.state.Commanded()
	rig.d.execute(ctx, "Polaris")

	assert.Equal(t, before, rig.d.state.Commanded())
	assert.Equal(t, "", rig.d.state.Tracked())
	assert.True(t, logContains(rig.d.state, "Object Polaris Not in Motor Bounds"))
}

func TestTrackedObjectMovesOutOfBounds(t *testing.T) {
	cfg := testConfig(t)
	cfg.ElLimits.Upper = 85
	rig := newTestRig(t, cfg)
	rig.tracker.move("Moon", rotor.Pose{Az: 200, El: 60})
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "Moon")
	require.Equal(t, "Moon", rig.d.state.Tracked())

	rig.tracker.move("Moon", rotor.Pose{Az: 200, El: 88})
	require.Eventually(t, func() bool {
		return rig.d.state.Tracked() == ""
	}, time.Second, time.Millisecond)
	assert.True(t, logContains(rig.d.state, "Object Moon moved out of motor bounds"))
}

func TestBoundsAreInclusive(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "azel 360 90")
	assert.Equal(t, rotor.Pose{Az: 360, El: 90}, rig.d.state.Commanded())
}

func TestRasterScan(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	rig.tracker.move("Sun", rotor.Pose{Az: 180, El: 40})
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "Sun n")

	assert.Equal(t, [2]float64{0, 0}, rig.d.state.Offsets())
	assert.Equal(t, "Sun", rig.d.state.Tracked())
}

func TestBeamSwitch(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	rig.tracker.move("CasA", rotor.Pose{Az: 100, El: 50})
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "CasA b")

	assert.Equal(t, [2]float64{0, 0}, rig.d.state.Offsets())
	assert.Equal(t, "CasA", rig.d.state.Tracked())
}

func TestRecordLifecycle(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "record")
	require.Equal(t, 1, rig.recorderCount())
	assert.True(t, rig.recorder(0).started)

	// Recording while recording is a logged conflict, not a second task.
	rig.d.execute(ctx, "record")
	assert.Equal(t, 1, rig.recorderCount())
	assert.True(t, logContains(rig.d.state, "Cannot Start Recording - Already Recording"))

	// A sample-rate change restarts the recorder at the new rate.
	rig.d.execute(ctx, "samp 2.4")
	require.Equal(t, 2, rig.recorderCount())
	assert.True(t, rig.recorder(0).isTerminated())
	assert.Equal(t, 2.4e6, rig.recorder(1).rate)
	assert.Equal(t, 2.4e6, rig.d.state.SampleRate())

	rig.d.execute(ctx, "roff")
	assert.True(t, rig.recorder(1).isTerminated())
	assert.Nil(t, rig.d.recording)

	// roff with no active recording is a no-op.
	rig.d.execute(ctx, "roff")
	assert.Equal(t, 2, rig.recorderCount())
}

func TestSampWithoutRecordingDoesNotStartOne(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "samp 8")
	assert.Equal(t, 0, rig.recorderCount())
	assert.Equal(t, 8e6, rig.d.state.SampleRate())
}

func TestFreqSetsExactly(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "freq 1420.4")
	assert.Equal(t, 1420.4e6, rig.d.state.CenterFreq())
	assert.Equal(t, 1420.4e6, rig.radio.freq)
}

func TestFreqRPCFailureLeavesStateUnchanged(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	rig.radio.failOn = "set_freq"
	ctx := rig.startWorkers(t)

	before := rig.d.state.CenterFreq()
	rig.d.execute(ctx, "freq 100")

	assert.Equal(t, before, rig.d.state.CenterFreq())
	assert.True(t, logContains(rig.d.state, "connection refused"))
}

func TestCalibrate(t *testing.T) {
	cfg := testConfig(t)
	rig := newTestRig(t, cfg)
	rig.d.calibrate = func(context.Context) error {
		return config.SaveCalibration(cfg.CalibrationPath(), config.Calibration{
			Values: []float64{2, 2, 2, 2, 2, 2, 2, 2},
			Power:  3.5,
		})
	}
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "calibrate")

	values, power := rig.d.state.Calibration()
	assert.Equal(t, 3.5, power)
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2, 2, 2}, values)
	assert.True(t, logContains(rig.d.state, "Calibration Done"))

	calls := rig.radio.callNames()
	assert.Contains(t, calls, "set_cal_pwr")
	assert.Contains(t, calls, "set_cal_values")
}

func TestUnknownCommandLogged(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx := rig.startWorkers(t)

	rig.d.execute(ctx, "warble 7")
	assert.True(t, logContains(rig.d.state, "Command Not Identified 'warble 7'"))
}

func TestStartupParameterOrder(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rig.d.startRadio(ctx)

	want := []string{
		"set_freq", "set_samp_rate", "set_motor_az", "set_motor_el",
		"set_tsys", "set_tcal", "set_cal_pwr", "set_cal_values", "set_is_running",
	}
	assert.Equal(t, want, rig.radio.callNames())
	assert.True(t, rig.radio.isRunning())
}

func TestStatusSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmergencyContact = "ops@example.org"
	rig := newTestRig(t, cfg)
	rig.tracker.move("Sun", rotor.Pose{Az: 120, El: 30})
	rig.d.state.ReplacePositions(rig.tracker.Positions())

	rig.d.Commands <- "stow"
	rig.d.Commands <- "5"
	rig.d.Commands <- "quit"

	s := rig.d.buildStatus()
	assert.Equal(t, 3, s.QueueSize)
	assert.Equal(t, "None", s.QueuedItem)
	assert.Equal(t, [2]float64{120, 30}, s.ObjectLocs["Sun"])
	assert.Equal(t, cfg.Beamwidth, s.BeamWidth)
	assert.Equal(t, "ops@example.org", s.EmergencyContact)
	assert.Equal(t, [2]float64{cfg.AzLimits.Lower, cfg.AzLimits.Upper}, s.AzLimits)
	assert.Equal(t, cfg.RadioCF, s.CenterFrequency)
	assert.Equal(t, cfg.RadioSF, s.Bandwidth)
	assert.Equal(t, cfg.TCal, s.TempCal)
	assert.Equal(t, cfg.TSys, s.TempSys)
}

func TestCurrentQueueItemTracksExecution(t *testing.T) {
	rig := newTestRig(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rig.d.servoLoop(ctx)
	go rig.d.interpreterLoop(ctx)

	rig.d.Commands <- "wait 0.3"

	require.Eventually(t, func() bool {
		return rig.d.state.QueueItem() == "wait 0.3"
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return rig.d.state.QueueItem() == "None"
	}, time.Second, time.Millisecond)
}

func TestSignalShutdownStopsRadio(t *testing.T) {
	rig := newTestRig(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rig.d.Run(ctx)
		close(done)
	}()

	rig.d.Commands <- "record"
	require.Eventually(t, func() bool {
		return rig.recorderCount() == 1
	}, time.Second, time.Millisecond)

	// Interrupt instead of quit: the radio backend must still be told it is
	// no longer running.
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down on context cancellation")
	}

	assert.False(t, rig.radio.isRunning())
	assert.True(t, rig.recorder(0).isTerminated())
	assert.Nil(t, rig.d.recording)
}

func TestQuitShutdownSequence(t *testing.T) {
	cfg := testConfig(t)
	cfg.StowLocation = config.Pointing{Azimuth: 0, Elevation: 90}
	rig := newTestRig(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		rig.d.Run(ctx)
		close(done)
	}()

	rig.d.Commands <- "azel 45 45"
	rig.d.Commands <- "record"
	rig.d.Commands <- "quit"

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down after quit")
	}

	assert.Equal(t, rotor.Pose{Az: 0, El: 90}, rig.d.state.Commanded())
	assert.True(t, rotor.WithinRange(rig.d.state.Measured(), rotor.Pose{Az: 0, El: 90}, 0.5))
	assert.False(t, rig.radio.isRunning())
	require.Equal(t, 1, rig.recorderCount())
	assert.True(t, rig.recorder(0).isTerminated())
	assert.Nil(t, rig.d.recording)
}
