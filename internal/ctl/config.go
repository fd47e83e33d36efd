package ctl

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Preferences are the srtctl client settings, loaded from ctl.toml. Flags
// override anything set here.
type Preferences struct {
	Endpoints EndpointPrefs `toml:"endpoints"`
}

// EndpointPrefs holds the daemon socket addresses.
type EndpointPrefs struct {
	Command string `toml:"command"`
	Status  string `toml:"status"`
}

// DefaultPreferences targets a daemon on the local machine with the
// conventional ports.
func DefaultPreferences() Preferences {
	return Preferences{
		Endpoints: EndpointPrefs{
			Command: "tcp://127.0.0.1:5556",
			Status:  "tcp://127.0.0.1:5555",
		},
	}
}

// findPreferencesFile searches the standard locations for ctl.toml:
//  1. $SRTCTL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/srt/ctl.toml (or ~/.config/srt/ctl.toml)
//
// Returns empty string when none exist; callers then use the defaults.
func findPreferencesFile() string {
	if env := os.Getenv("SRTCTL_CONFIG"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env
		}
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	path := filepath.Join(dir, "srt", "ctl.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// LoadPreferences layers ctl.toml (when present) over the defaults. A
// malformed file is an error; a missing one is not.
func LoadPreferences() (Preferences, error) {
	prefs := DefaultPreferences()
	path := findPreferencesFile()
	if path == "" {
		return prefs, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return prefs, err
	}
	if err := toml.Unmarshal(b, &prefs); err != nil {
		return prefs, err
	}
	return prefs, nil
}
