package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
	return dir
}

const minimalYAML = `
STATION:
  latitude: 42.5
  longitude: -71.5
AZLIMITS:
  lower_bound: 10.0
  upper_bound: 350.0
ELLIMITS:
  lower_bound: 5.0
  upper_bound: 85.0
STOW_LOCATION:
  azimuth: 15.0
  elevation: 10.0
MOTOR_TYPE: ROT2PROG
MOTOR_PORT: /dev/ttyUSB1
RADIO_CF: 1420400000.0
RADIO_SF: 2400000.0
BEAMWIDTH: 7.0
SAVE_DIRECTORY: %s
`

func TestLoadLayersOverDefaults(t *testing.T) {
	save := t.TempDir()
	dir := writeConfig(t, fmt.Sprintf(minimalYAML, save))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 42.5, cfg.Station.Latitude)
	assert.Equal(t, Limits{Lower: 10, Upper: 350}, cfg.AzLimits)
	assert.Equal(t, Limits{Lower: 5, Upper: 85}, cfg.ElLimits)
	assert.Equal(t, Pointing{Azimuth: 15, Elevation: 10}, cfg.StowLocation)
	assert.Equal(t, "ROT2PROG", cfg.MotorType)
	assert.Equal(t, save, cfg.SaveDirectory)
	assert.Equal(t, dir, cfg.Dir)

	// Keys the file omits keep their defaults.
	assert.Equal(t, 4096, cfg.RadioNumBins)
	assert.Equal(t, 1000, cfg.RadioIntegCycles)
	assert.Equal(t, 171.0, cfg.TSys)
	assert.Equal(t, 290.0, cfg.TCal)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		mangle string
	}{
		{"inverted az limits", "AZLIMITS:\n  lower_bound: 300.0\n  upper_bound: 10.0\n"},
		{"bad latitude", "STATION:\n  latitude: 120.0\n  longitude: 0.0\n"},
		{"zero bins", "RADIO_NUM_BINS: 0\n"},
		{"zero beamwidth", "BEAMWIDTH: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.mangle)
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	cfg := Default()
	cfg.Dir = "/etc/srt"
	assert.Equal(t, "/etc/srt/sky_coords.csv", cfg.SkyCoordsPath())
	assert.Equal(t, "/etc/srt/calibration.json", cfg.CalibrationPath())
}

func TestCalibrationDefaultsWhenAbsent(t *testing.T) {
	cal, err := LoadCalibration(filepath.Join(t.TempDir(), "calibration.json"), 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, cal.Values)
	assert.Equal(t, 1.0, cal.Power)
}

func TestCalibrationRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	want := Calibration{Values: []float64{0.9, 1.1, 1.0}, Power: 2.25}

	require.NoError(t, SaveCalibration(path, want))

	got, err := LoadCalibration(path, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCalibrationMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := LoadCalibration(path, 4)
	assert.Error(t, err)
}
