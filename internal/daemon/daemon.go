package daemon

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/large-farva/srt-control/internal/config"
	"github.com/large-farva/srt-control/internal/radio"
	"github.com/large-farva/srt-control/internal/rotor"
	"github.com/large-farva/srt-control/internal/telemetry"
	"github.com/large-farva/srt-control/internal/ws"
)

// StatusSink receives each published status snapshot. The ZMQ publisher
// implements it; tests substitute their own.
type StatusSink interface {
	PublishJSON(v any) error
}

// PositionSource supplies apparent object positions. ephemeris.Tracker is
// the production implementation.
type PositionSource interface {
	UpdateAll(now time.Time)
	Positions() map[string]rotor.Pose
}

// Recorder is the lifecycle surface of an external radio task.
type Recorder interface {
	Start() error
	Terminate()
}

// Options holds everything the Daemon needs from the caller.
type Options struct {
	Logger  *log.Logger
	Cfg     config.Config
	Tracker PositionSource
	Rotor   *rotor.Rotor
	Radio   radio.Client

	// Publisher and Hub are optional status outputs.
	Publisher StatusSink
	Hub       *ws.Hub

	// Process, NewRecorder, and Calibrate default to the real radio tasks
	// when nil. Tests inject fakes.
	Process     Recorder
	NewRecorder func(sampleRate float64) Recorder
	Calibrate   func(ctx context.Context) error
}

// intervals collects the timing constants of the five activities. Tests
// shrink them; production uses the defaults.
type intervals struct {
	ephemerisPeriod time.Duration
	servoPoll       time.Duration
	servoTimeout    time.Duration
	statusPeriod    time.Duration
	waitPoll        time.Duration
	dwell           time.Duration
	startupDelay    time.Duration
	paramSpacing    time.Duration
}

func defaultIntervals() intervals {
	return intervals{
		ephemerisPeriod: 5 * time.Second,
		servoPoll:       time.Second,
		servoTimeout:    10 * time.Second,
		statusPeriod:    500 * time.Millisecond,
		waitPoll:        100 * time.Millisecond,
		dwell:           5 * time.Second,
		startupDelay:    5 * time.Second,
		paramSpacing:    100 * time.Millisecond,
	}
}

// Daemon coordinates the rotor, the radio pipeline, and the ephemeris
// tracker behind one serialized command queue. Four background activities
// (ephemeris updater, rotor servo, command ingress, status publisher) run
// alongside the foreground command interpreter.
type Daemon struct {
	// Commands is the FIFO command queue. The transport ingress feeds it;
	// the interpreter drains it one command at a time.
	Commands chan string

	log     *log.Logger
	cfg     config.Config
	state   *State
	tracker PositionSource
	rotor   *rotor.Rotor
	radio   radio.Client
	pub     StatusSink
	hub     *ws.Hub

	process     Recorder
	newRecorder func(sampleRate float64) Recorder
	calibrate   func(ctx context.Context) error
	recording   Recorder // nil when not recording

	// radioStopped records that set_is_running(false) was already pushed, so
	// the signal path and the quit command don't both issue it. Only the
	// interpreter goroutine touches it.
	radioStopped bool

	iv intervals
}

// New assembles a daemon from its collaborators. State is seeded from the
// configuration and the persisted calibration.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Cfg

	cal, err := config.LoadCalibration(cfg.CalibrationPath(), cfg.RadioNumBins)
	if err != nil {
		return nil, err
	}

	stow := rotor.Pose{Az: cfg.StowLocation.Azimuth, El: cfg.StowLocation.Elevation}
	offsets := [2]float64{cfg.MotorOffsets.Azimuth, cfg.MotorOffsets.Elevation}

	d := &Daemon{
		Commands:    make(chan string, 256),
		log:         opts.Logger,
		cfg:         cfg,
		state:       NewState(stow, offsets, cfg.RadioCF, cfg.RadioSF, cal.Values, cal.Power),
		tracker:     opts.Tracker,
		rotor:       opts.Rotor,
		radio:       opts.Radio,
		pub:         opts.Publisher,
		hub:         opts.Hub,
		process:     opts.Process,
		newRecorder: opts.NewRecorder,
		calibrate:   opts.Calibrate,
		iv:          defaultIntervals(),
	}

	if d.process == nil {
		d.process = radio.NewProcessTask(cfg.RadioNumBins, cfg.RadioIntegCycles, opts.Logger)
	}
	if d.newRecorder == nil {
		d.newRecorder = func(sampleRate float64) Recorder {
			return radio.NewSaveRawTask(sampleRate, cfg.SaveDirectory, opts.Logger)
		}
	}
	if d.calibrate == nil {
		d.calibrate = func(ctx context.Context) error {
			task := &radio.CalibrateTask{
				NumBins:         cfg.RadioNumBins,
				NumIntegrations: cfg.RadioIntegCycles,
				ConfigDir:       cfg.Dir,
			}
			return task.Run(ctx)
		}
	}

	return d, nil
}

// State exposes the coordinator record for status consumers and tests.
func (d *Daemon) State() *State {
	return d.state
}

// Run starts the radio pipeline, pushes the initial parameter set, launches
// the background activities, and interprets commands until quit or context
// cancellation. It then performs the stow-and-terminate shutdown.
func (d *Daemon) Run(ctx context.Context) {
	d.startRadio(ctx)

	go d.ephemerisLoop(ctx)
	go d.servoLoop(ctx)
	go d.statusLoop(ctx)

	d.interpreterLoop(ctx)
	d.shutdown(ctx)
}

// logMessage appends to the operator-visible error log and echoes to the
// process log.
func (d *Daemon) logMessage(msg string) {
	d.state.AppendLog(telemetry.NewLogEntry(msg))
	d.log.Print(msg)
}

// sleep blocks for dur or until the context is cancelled. Returns false on
// cancellation.
func (d *Daemon) sleep(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// startRadio launches the processing flowgraph and pushes the initial
// parameter set in a fixed order with a small gap between calls, giving the
// freshly started flowgraph time to apply each one.
func (d *Daemon) startRadio(ctx context.Context) {
	if err := d.process.Start(); err != nil {
		d.logMessage(err.Error())
	}
	d.sleep(ctx, d.iv.startupDelay)

	measured := d.state.Measured()
	values, power := d.state.Calibration()

	params := []struct {
		name string
		push func() error
	}{
		{"Frequency", func() error { return d.radio.SetFreq(d.state.CenterFreq()) }},
		{"Sample Rate", func() error { return d.radio.SetSampRate(d.state.SampleRate()) }},
		{"Motor Azimuth", func() error { return d.radio.SetMotorAz(measured.Az) }},
		{"Motor Elevation", func() error { return d.radio.SetMotorEl(measured.El) }},
		{"System Temp", func() error { return d.radio.SetTSys(d.cfg.TSys) }},
		{"Calibration Temp", func() error { return d.radio.SetTCal(d.cfg.TCal) }},
		{"Calibration Power", func() error { return d.radio.SetCalPwr(power) }},
		{"Calibration Values", func() error { return d.radio.SetCalValues(values) }},
		{"Is Running", func() error { return d.radio.SetIsRunning(true) }},
	}
	for _, p := range params {
		d.logMessage("Setting " + p.name)
		if err := p.push(); err != nil {
			d.logMessage(err.Error())
		}
		if !d.sleep(ctx, d.iv.paramSpacing) {
			return
		}
	}
}

// ephemerisLoop periodically recomputes object positions and, while an
// object is tracked, retargets the commanded pose. It never blocks on rotor
// motion; it only publishes intent.
func (d *Daemon) ephemerisLoop(ctx context.Context) {
	for {
		d.tracker.UpdateAll(time.Now())
		positions := d.tracker.Positions()
		d.state.ReplacePositions(positions)

		if key := d.state.Tracked(); key != "" {
			p, ok := positions[key]
			// The bounds check uses the raw object position; offsets are
			// applied after it passes.
			if ok && d.rotor.AnglesWithinBounds(p) {
				d.state.RetargetTracked(p)
			} else {
				d.logMessage(fmt.Sprintf("Object %s moved out of motor bounds", key))
				d.state.SetTracked("")
			}
		}

		if !d.sleep(ctx, d.iv.ephemerisPeriod) {
			return
		}
	}
}

// servoLoop reconciles the measured pose with the commanded pose. Each
// divergence gets a goto and a bounded convergence window; a stuck motor
// falls out of the window and the goto is re-issued on the next pass.
func (d *Daemon) servoLoop(ctx context.Context) {
	tol := d.rotor.Tolerance()
	for ctx.Err() == nil {
		if !rotor.WithinRange(d.state.Measured(), d.state.Commanded(), tol) {
			if err := d.rotor.Goto(d.state.Commanded()); err != nil {
				d.logMessage(err.Error())
				if !d.sleep(ctx, d.iv.servoPoll) {
					return
				}
				continue
			}
			start := time.Now()
			for !rotor.WithinRange(d.state.Measured(), d.state.Commanded(), tol) &&
				time.Since(start) < d.iv.servoTimeout {
				d.readAndMirror()
				if !d.sleep(ctx, d.iv.servoPoll) {
					return
				}
			}
		} else {
			d.readAndMirror()
			if !d.sleep(ctx, d.iv.servoPoll) {
				return
			}
		}
	}
}

// readAndMirror polls the rotor and mirrors the measured pose to the radio
// pipeline so recorded spectra carry the pointing they were taken at.
func (d *Daemon) readAndMirror() {
	p, err := d.rotor.Read()
	if err != nil {
		d.logMessage(err.Error())
		return
	}
	d.state.SetMeasured(p)
	if err := d.radio.SetMotorAz(p.Az); err != nil {
		d.logMessage(err.Error())
		return
	}
	if err := d.radio.SetMotorEl(p.El); err != nil {
		d.logMessage(err.Error())
	}
}

// statusLoop publishes a coherent snapshot of the coordinator state at a
// fixed cadence on every configured output.
func (d *Daemon) statusLoop(ctx context.Context) {
	for {
		status := d.buildStatus()
		if d.pub != nil {
			if err := d.pub.PublishJSON(status); err != nil {
				d.log.Printf("status publish: %v", err)
			}
		}
		if d.hub != nil {
			d.hub.PublishStatus(status)
		}
		if !d.sleep(ctx, d.iv.statusPeriod) {
			return
		}
	}
}

func (d *Daemon) buildStatus() telemetry.Status {
	measured, commanded, offsets, positions, queueItem, centerFreq, sampleRate, calPower, logs := d.state.snapshot()

	objectLocs := make(map[string][2]float64, len(positions))
	for k, v := range positions {
		objectLocs[k] = [2]float64{v.Az, v.El}
	}

	return telemetry.Status{
		BeamWidth: d.cfg.Beamwidth,
		Location: telemetry.Station{
			Latitude:  d.cfg.Station.Latitude,
			Longitude: d.cfg.Station.Longitude,
		},
		MotorAzEl:        [2]float64{measured.Az, measured.El},
		MotorCmdAzEl:     [2]float64{commanded.Az, commanded.El},
		ObjectLocs:       objectLocs,
		AzLimits:         [2]float64{d.cfg.AzLimits.Lower, d.cfg.AzLimits.Upper},
		ElLimits:         [2]float64{d.cfg.ElLimits.Lower, d.cfg.ElLimits.Upper},
		CenterFrequency:  centerFreq,
		Bandwidth:        sampleRate,
		MotorOffsets:     offsets,
		QueuedItem:       queueItem,
		QueueSize:        len(d.Commands),
		EmergencyContact: d.cfg.EmergencyContact,
		ErrorLogs:        logs,
		TempCal:          d.cfg.TCal,
		TempSys:          d.cfg.TSys,
		CalPower:         calPower,
	}
}

// interpreterLoop drains the command queue one command at a time. Effects of
// each command, including pointing completion, are visible before the next
// dequeue.
func (d *Daemon) interpreterLoop(ctx context.Context) {
	for {
		d.state.SetQueueItem("None")
		var raw string
		select {
		case <-ctx.Done():
			return
		case raw = <-d.Commands:
		}

		d.logMessage(fmt.Sprintf("Running Command '%s'", raw))
		d.state.SetQueueItem(raw)

		if quit := d.execute(ctx, raw); quit {
			return
		}
	}
}

// stopRadio pushes set_is_running(false) once. The quit command does it at
// dispatch time; a signal-triggered shutdown reaches it here instead.
func (d *Daemon) stopRadio() {
	if d.radioStopped {
		return
	}
	d.radioStopped = true
	if err := d.radio.SetIsRunning(false); err != nil {
		d.logMessage(err.Error())
	}
}

// shutdown stows the dish, waits for convergence, and terminates the radio
// tasks. The background activities are daemons; they exit with the process.
func (d *Daemon) shutdown(ctx context.Context) {
	d.stopRadio()
	d.state.SetTracked("")
	d.state.SetCommanded(rotor.Pose{
		Az: d.cfg.StowLocation.Azimuth,
		El: d.cfg.StowLocation.Elevation,
	})
	d.waitInRange(ctx)

	if d.recording != nil {
		d.recording.Terminate()
		d.recording = nil
	}
	d.process.Terminate()
}
