// Package config handles loading, defaulting, and validation of the station
// YAML configuration plus the persisted calibration file. Every key maps to a
// typed struct so the rest of the codebase gets strong typing without manual
// map lookups.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the station config file expected inside the config
// directory, next to sky_coords.csv and calibration.json.
const ConfigFileName = "config.yaml"

// Config is the full station configuration, mirroring the YAML keys.
type Config struct {
	Station          Station  `yaml:"STATION"`
	EmergencyContact string   `yaml:"EMERGENCY_CONTACT"`
	AzLimits         Limits   `yaml:"AZLIMITS"`
	ElLimits         Limits   `yaml:"ELLIMITS"`
	StowLocation     Pointing `yaml:"STOW_LOCATION"`
	MotorOffsets     Pointing `yaml:"MOTOR_OFFSETS"`
	MotorType        string   `yaml:"MOTOR_TYPE"`
	MotorPort        string   `yaml:"MOTOR_PORT"`
	RadioCF          float64  `yaml:"RADIO_CF"`
	RadioSF          float64  `yaml:"RADIO_SF"`
	RadioNumBins     int      `yaml:"RADIO_NUM_BINS"`
	RadioIntegCycles int      `yaml:"RADIO_INTEG_CYCLES"`
	Beamwidth        float64  `yaml:"BEAMWIDTH"`
	TSys             float64  `yaml:"TSYS"`
	TCal             float64  `yaml:"TCAL"`
	SaveDirectory    string   `yaml:"SAVE_DIRECTORY"`
	Dashboard        string   `yaml:"DASHBOARD"`

	// Directory the config was loaded from. Set by Load; sky_coords.csv and
	// calibration.json are resolved relative to it.
	Dir string `yaml:"-"`
}

// Station is the observer site. When UseGPSD is set the daemon asks a local
// gpsd for the position and falls back to the configured values.
type Station struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	UseGPSD   bool    `yaml:"use_gpsd"`
	GPSDHost  string  `yaml:"gpsd_host"`
}

// Limits is one inclusive angular interval in degrees.
type Limits struct {
	Lower float64 `yaml:"lower_bound"`
	Upper float64 `yaml:"upper_bound"`
}

// Pointing is an azimuth/elevation pair in degrees.
type Pointing struct {
	Azimuth   float64 `yaml:"azimuth"`
	Elevation float64 `yaml:"elevation"`
}

// DefaultConfigDir returns the XDG-compliant config directory for the
// daemon. It respects $XDG_CONFIG_HOME and falls back to ~/.config/srt.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "srt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "srt")
}

// FindConfigDir searches for a config directory in standard locations:
//  1. $SRT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/srt (or ~/.config/srt)
//  3. /etc/srt
//  4. ./config (bundled fallback)
//
// Returns the first directory containing a config.yaml, or empty string if
// none exist.
func FindConfigDir() string {
	candidates := []string{
		os.Getenv("SRT_CONFIG"),
		DefaultConfigDir(),
		"/etc/srt",
		"config",
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir
		}
	}
	return ""
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the YAML file omits a key.
func Default() Config {
	return Config{
		Station:          Station{Latitude: 42.5, Longitude: -71.5, GPSDHost: "localhost:2947"},
		EmergencyContact: "",
		AzLimits:         Limits{Lower: 0, Upper: 360},
		ElLimits:         Limits{Lower: 0, Upper: 90},
		StowLocation:     Pointing{Azimuth: 0, Elevation: 0},
		MotorOffsets:     Pointing{Azimuth: 0, Elevation: 0},
		MotorType:        "SIM",
		MotorPort:        "/dev/ttyUSB0",
		RadioCF:          1420.4e6,
		RadioSF:          2.4e6,
		RadioNumBins:     4096,
		RadioIntegCycles: 1000,
		Beamwidth:        7.0,
		TSys:             171,
		TCal:             290,
		SaveDirectory:    ".",
	}
}

// Load reads config.yaml from dir, layers it on top of the defaults, and
// validates the result. The save directory is created if missing.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, ConfigFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Dir = dir
	cfg.SaveDirectory = expandHome(cfg.SaveDirectory)

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, os.MkdirAll(cfg.SaveDirectory, 0o755)
}

// SkyCoordsPath returns the catalog file inside the config directory.
func (c Config) SkyCoordsPath() string {
	return filepath.Join(c.Dir, "sky_coords.csv")
}

// CalibrationPath returns the persisted calibration file inside the config
// directory.
func (c Config) CalibrationPath() string {
	return filepath.Join(c.Dir, "calibration.json")
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg Config) error {
	if cfg.AzLimits.Lower > cfg.AzLimits.Upper {
		return errors.New("AZLIMITS.lower_bound must not exceed AZLIMITS.upper_bound")
	}
	if cfg.ElLimits.Lower > cfg.ElLimits.Upper {
		return errors.New("ELLIMITS.lower_bound must not exceed ELLIMITS.upper_bound")
	}
	if cfg.Station.Latitude < -90 || cfg.Station.Latitude > 90 {
		return errors.New("STATION.latitude must be between -90 and 90")
	}
	if cfg.Station.Longitude < -180 || cfg.Station.Longitude > 180 {
		return errors.New("STATION.longitude must be between -180 and 180")
	}
	if cfg.RadioCF <= 0 {
		return errors.New("RADIO_CF must be > 0")
	}
	if cfg.RadioSF <= 0 {
		return errors.New("RADIO_SF must be > 0")
	}
	if cfg.RadioNumBins <= 0 {
		return errors.New("RADIO_NUM_BINS must be > 0")
	}
	if cfg.RadioIntegCycles <= 0 {
		return errors.New("RADIO_INTEG_CYCLES must be > 0")
	}
	if cfg.Beamwidth <= 0 {
		return errors.New("BEAMWIDTH must be > 0")
	}
	if cfg.MotorType == "" {
		return errors.New("MOTOR_TYPE must not be empty")
	}
	if cfg.SaveDirectory == "" {
		return errors.New("SAVE_DIRECTORY must not be empty")
	}
	return nil
}

// Calibration is the persisted per-bin gain vector and reference power.
type Calibration struct {
	Values []float64 `json:"cal_values"`
	Power  float64   `json:"cal_pwr"`
}

// DefaultCalibration returns the all-ones vector with unit power for the
// given bin count. Used whenever calibration.json is absent.
func DefaultCalibration(numBins int) Calibration {
	values := make([]float64, numBins)
	for i := range values {
		values[i] = 1
	}
	return Calibration{Values: values, Power: 1}
}

// LoadCalibration reads calibration.json from path. A missing file is not an
// error: the defaults for numBins are returned instead.
func LoadCalibration(path string, numBins int) (Calibration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCalibration(numBins), nil
		}
		return DefaultCalibration(numBins), err
	}
	var cal Calibration
	if err := json.Unmarshal(b, &cal); err != nil {
		return DefaultCalibration(numBins), fmt.Errorf("parse %s: %w", path, err)
	}
	return cal, nil
}

// SaveCalibration atomically writes the calibration file via a temp file and
// rename so readers never see a half-written document.
func SaveCalibration(path string, cal Calibration) error {
	b, err := json.Marshal(cal)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "cal-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
