package radio

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// ExecCommand builds the subprocess for a radio task. Tests swap it out to
// avoid launching real flowgraphs.
var ExecCommand = exec.CommandContext

// ProcessTask runs the spectrum-processing flowgraph as an external process.
// It serves the XML-RPC parameter endpoint the daemon pushes settings to.
type ProcessTask struct {
	NumBins         int
	NumIntegrations int
	Log             *log.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// NewProcessTask creates a process task; Start launches it.
func NewProcessTask(numBins, numIntegrations int, logger *log.Logger) *ProcessTask {
	return &ProcessTask{NumBins: numBins, NumIntegrations: numIntegrations, Log: logger}
}

// Start spawns the flowgraph. The process keeps running until Terminate.
func (t *ProcessTask) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := ExecCommand(ctx, "radio_process",
		"--num-bins", fmt.Sprintf("%d", t.NumBins),
		"--num-integrations", fmt.Sprintf("%d", t.NumIntegrations),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start radio_process: %w", err)
	}
	t.cmd = cmd
	t.cancel = cancel
	go t.reap()
	return nil
}

// Terminate kills the flowgraph if it is running.
func (t *ProcessTask) Terminate() {
	if t.cancel != nil {
		t.cancel()
	}
}

// reap waits out the subprocess so it doesn't linger as a zombie.
func (t *ProcessTask) reap() {
	err := t.cmd.Wait()
	if err != nil && t.Log != nil {
		t.Log.Printf("radio: process task exited: %v", err)
	}
}

// SaveRawTask records raw samples to the save directory at a fixed sample
// rate. A new task must be created after a rate change; the daemon stops and
// restarts recording around samp-rate updates.
type SaveRawTask struct {
	SampleRate float64
	SaveDir    string
	Log        *log.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// NewSaveRawTask creates a raw-recording task bound to a sample rate and
// output directory.
func NewSaveRawTask(sampleRate float64, saveDir string, logger *log.Logger) *SaveRawTask {
	return &SaveRawTask{SampleRate: sampleRate, SaveDir: saveDir, Log: logger}
}

// Start spawns the recorder.
func (t *SaveRawTask) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := ExecCommand(ctx, "radio_save_raw",
		"--samp-rate", fmt.Sprintf("%.0f", t.SampleRate),
		"--directory", t.SaveDir,
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start radio_save_raw: %w", err)
	}
	t.cmd = cmd
	t.cancel = cancel
	go t.reap()
	return nil
}

// Terminate stops the recorder.
func (t *SaveRawTask) Terminate() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *SaveRawTask) reap() {
	err := t.cmd.Wait()
	if err != nil && t.Log != nil {
		t.Log.Printf("radio: save raw task exited: %v", err)
	}
}

// CalibrateTask runs the calibration flowgraph, which measures per-bin gains
// against the calibration source and writes calibration.json into the config
// directory before exiting.
type CalibrateTask struct {
	NumBins         int
	NumIntegrations int
	ConfigDir       string
}

// Run launches the calibration flowgraph and waits for it to finish. Callers
// bound the wait with the context; on expiry the subprocess is killed.
func (t *CalibrateTask) Run(ctx context.Context) error {
	cmd := ExecCommand(ctx, "radio_calibrate",
		"--num-bins", fmt.Sprintf("%d", t.NumBins),
		"--num-integrations", fmt.Sprintf("%d", t.NumIntegrations),
		"--directory", t.ConfigDir,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start radio_calibrate: %w", err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		return fmt.Errorf("calibration timed out after %s", CalibrateTimeout)
	}
	if err != nil {
		return fmt.Errorf("radio_calibrate: %w", err)
	}
	return nil
}

// CalibrateTimeout is how long the command interpreter waits for a
// calibration run before giving up on the join.
const CalibrateTimeout = 30 * time.Second
