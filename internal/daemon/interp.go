package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/large-farva/srt-control/internal/config"
	"github.com/large-farva/srt-control/internal/radio"
	"github.com/large-farva/srt-control/internal/rotor"
)

// execute interprets one raw command line. It returns true when the daemon
// should shut down. Parse and execution errors are logged and the command is
// skipped; nothing propagates out of the interpreter.
func (d *Daemon) execute(ctx context.Context, raw string) (quit bool) {
	cmd, err := ParseCommand(raw, d.state.HasObject)
	if err != nil {
		d.logMessage(err.Error())
		return false
	}

	switch c := cmd.(type) {
	case Comment:

	case Track:
		d.runTrack(ctx, c.Key)

	case TrackScanN:
		d.runScanN(ctx, c.Key)

	case TrackBeamSwitch:
		d.runBeamSwitch(ctx, c.Key)

	case Sleep:
		d.sleep(ctx, time.Duration(c.Secs*float64(time.Second)))

	case Stow:
		d.state.SetTracked("")
		d.state.SetCommanded(rotor.Pose{
			Az: d.cfg.StowLocation.Azimuth,
			El: d.cfg.StowLocation.Elevation,
		})
		d.waitInRange(ctx)

	case Calibrate:
		d.runCalibrate(ctx)

	case Quit:
		d.stopRadio()
		return true

	case RecordStart:
		if d.recording != nil {
			d.logMessage("Cannot Start Recording - Already Recording")
			break
		}
		rec := d.newRecorder(d.state.SampleRate())
		if err := rec.Start(); err != nil {
			d.logMessage(err.Error())
			break
		}
		d.recording = rec

	case RecordStop:
		if d.recording != nil {
			d.recording.Terminate()
			d.recording = nil
		}

	case SetFreq:
		if err := d.radio.SetFreq(c.Hz); err != nil {
			d.logMessage(err.Error())
			break
		}
		d.state.SetCenterFreq(c.Hz)

	case SetSampRate:
		d.runSetSampRate(c.Hz)

	case ManualPoint:
		d.runManualPoint(ctx, c.Az, c.El)

	case SetOffset:
		d.state.SetOffsets(c.DAz, c.DEl)

	case Unknown:
		d.logMessage(fmt.Sprintf("Command Not Identified '%s'", c.Raw))
	}

	return false
}

// runTrack begins following a catalog object: commanded pose becomes the
// object position plus offsets, and the interpreter blocks until the rotor
// arrives. The ephemeris updater keeps retargeting from here on.
func (d *Daemon) runTrack(ctx context.Context, key string) {
	pos, ok := d.state.Position(key)
	if !ok || !d.rotor.AnglesWithinBounds(pos) {
		d.logMessage(fmt.Sprintf("Object %s Not in Motor Bounds", key))
		d.state.SetTracked("")
		return
	}
	d.state.SetTracked(key)
	offsets := d.state.Offsets()
	d.state.SetCommanded(pos.Add(offsets[0], offsets[1]))
	d.waitInRange(ctx)
}

// runScanN performs the 5x5 raster scan around an object. Tracking is
// suspended for the duration so the ephemeris updater does not fight the
// scan; each step refetches the object position, points, waits, and dwells.
// Steps whose pose falls outside motor bounds are skipped with a logged
// error rather than wedging the interpreter.
func (d *Daemon) runScanN(ctx context.Context, key string) {
	d.state.SetTracked("")
	for s := 0; s < rasterSteps; s++ {
		pos, ok := d.state.Position(key)
		if !ok {
			d.logMessage(fmt.Sprintf("Object %s Not in Motor Bounds", key))
			break
		}
		daz, del := rasterOffset(s, d.cfg.Beamwidth, pos.El)
		d.state.SetOffsets(daz, del)
		target := pos.Add(daz, del)
		if !d.rotor.AnglesWithinBounds(target) {
			d.logMessage(fmt.Sprintf("Object at (%.1f, %.1f) Not in Motor Bounds", target.Az, target.El))
			continue
		}
		d.state.SetCommanded(target)
		if !d.waitInRange(ctx) {
			return
		}
		if !d.sleep(ctx, d.iv.dwell) {
			return
		}
	}
	d.state.SetOffsets(0, 0)
	d.state.SetTracked(key)
}

// runBeamSwitch slews one beamwidth off-source, back on, and off the other
// side, dwelling at each leg. Used to estimate background power.
func (d *Daemon) runBeamSwitch(ctx context.Context, key string) {
	d.state.SetTracked("")
	pos, ok := d.state.Position(key)
	if !ok {
		d.logMessage(fmt.Sprintf("Object %s Not in Motor Bounds", key))
		return
	}
	for j := -1; j <= 1; j++ {
		daz := beamSwitchOffset(j, d.cfg.Beamwidth, pos.El)
		d.state.SetOffsets(daz, 0)
		target := pos.Add(daz, 0)
		if !d.rotor.AnglesWithinBounds(target) {
			d.logMessage(fmt.Sprintf("Object at (%.1f, %.1f) Not in Motor Bounds", target.Az, target.El))
			continue
		}
		d.state.SetCommanded(target)
		if !d.waitInRange(ctx) {
			return
		}
		if !d.sleep(ctx, d.iv.dwell) {
			return
		}
	}
	d.state.SetOffsets(0, 0)
	d.state.SetTracked(key)
}

// runCalibrate launches the calibration task with a bounded join, then
// reloads calibration.json and pushes the result to the radio pipeline. The
// file is re-read even after a timeout; a stale or missing file surfaces as
// a logged read error.
func (d *Daemon) runCalibrate(ctx context.Context) {
	calCtx, cancel := context.WithTimeout(ctx, radio.CalibrateTimeout)
	err := d.calibrate(calCtx)
	cancel()
	if err != nil {
		d.logMessage(err.Error())
	}

	cal, err := config.LoadCalibration(d.cfg.CalibrationPath(), d.cfg.RadioNumBins)
	if err != nil {
		d.logMessage(err.Error())
		return
	}
	d.state.SetCalibration(cal.Values, cal.Power)

	if err := d.radio.SetCalPwr(cal.Power); err != nil {
		d.logMessage(err.Error())
		return
	}
	if err := d.radio.SetCalValues(cal.Values); err != nil {
		d.logMessage(err.Error())
		return
	}
	d.logMessage("Calibration Done")
}

// runSetSampRate changes the sample rate and, when a recording is active,
// restarts it so the new rate takes effect.
func (d *Daemon) runSetSampRate(hz float64) {
	if d.recording != nil {
		d.recording.Terminate()
	}
	d.state.SetSampleRate(hz)
	if err := d.radio.SetSampRate(hz); err != nil {
		d.logMessage(err.Error())
		d.recording = nil
		return
	}
	if d.recording != nil {
		rec := d.newRecorder(hz)
		if err := rec.Start(); err != nil {
			d.logMessage(err.Error())
			d.recording = nil
			return
		}
		d.recording = rec
	}
}

// runManualPoint aims at a fixed azimuth/elevation. Tracking is cleared
// first so the ephemeris updater cannot retarget a manual move.
func (d *Daemon) runManualPoint(ctx context.Context, az, el float64) {
	d.state.SetTracked("")
	target := rotor.Pose{Az: az, El: el}
	if !d.rotor.AnglesWithinBounds(target) {
		d.logMessage(fmt.Sprintf("Object at (%.1f, %.1f) Not in Motor Bounds", az, el))
		return
	}
	offsets := d.state.Offsets()
	d.state.SetCommanded(target.Add(offsets[0], offsets[1]))
	d.waitInRange(ctx)
}

// waitInRange blocks until the measured pose converges on the commanded
// pose. There is deliberately no interpreter-level timeout: convergence is
// bounded only by the servo's own re-attempt cycle, and a physically stuck
// rotor holds the interpreter until the operator intervenes. Returns false
// only on context cancellation.
func (d *Daemon) waitInRange(ctx context.Context) bool {
	tol := d.rotor.Tolerance()
	for !rotor.WithinRange(d.state.Measured(), d.state.Commanded(), tol) {
		if !d.sleep(ctx, d.iv.waitPoll) {
			return false
		}
	}
	return true
}
