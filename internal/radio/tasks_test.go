package radio

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand replaces the real flowgraph with a shell stand-in and restores
// ExecCommand when the test ends.
func stubCommand(t *testing.T, name string, args ...string) *[]string {
	t.Helper()
	original := ExecCommand
	t.Cleanup(func() { ExecCommand = original })

	var gotArgs []string
	ExecCommand = func(ctx context.Context, _ string, cmdArgs ...string) *exec.Cmd {
		gotArgs = append([]string{}, cmdArgs...)
		return exec.CommandContext(ctx, name, args...)
	}
	return &gotArgs
}

func TestCalibrateTaskRun(t *testing.T) {
	gotArgs := stubCommand(t, "true")

	task := &CalibrateTask{NumBins: 64, NumIntegrations: 10, ConfigDir: "/tmp/srt"}
	err := task.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, *gotArgs, "--num-bins")
	assert.Contains(t, *gotArgs, "64")
	assert.Contains(t, *gotArgs, "--directory")
	assert.Contains(t, *gotArgs, "/tmp/srt")
}

func TestCalibrateTaskFailure(t *testing.T) {
	stubCommand(t, "false")

	task := &CalibrateTask{NumBins: 64, NumIntegrations: 10, ConfigDir: "/tmp/srt"}
	err := task.Run(context.Background())
	assert.Error(t, err)
}

func TestCalibrateTaskTimeout(t *testing.T) {
	stubCommand(t, "sleep", "30")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	task := &CalibrateTask{NumBins: 64, NumIntegrations: 10, ConfigDir: "/tmp/srt"}
	err := task.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestSaveRawTaskLifecycle(t *testing.T) {
	gotArgs := stubCommand(t, "sleep", "30")

	task := NewSaveRawTask(2.4e6, "/tmp/data", nil)
	require.NoError(t, task.Start())
	task.Terminate()

	assert.Contains(t, *gotArgs, "--samp-rate")
	assert.Contains(t, *gotArgs, "2400000")
	assert.Contains(t, *gotArgs, "--directory")
	assert.Contains(t, *gotArgs, "/tmp/data")
}

func TestProcessTaskStart(t *testing.T) {
	gotArgs := stubCommand(t, "sleep", "30")

	task := NewProcessTask(4096, 1000, nil)
	require.NoError(t, task.Start())
	task.Terminate()

	assert.Contains(t, *gotArgs, "--num-bins")
	assert.Contains(t, *gotArgs, "4096")
}
