package ctl

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/large-farva/srt-control/internal/config"
	"github.com/large-farva/srt-control/internal/ephemeris"
)

// Passes computes upcoming transits of the TLE catalog entries using the
// station config directory. This runs locally: pass prediction needs only
// the catalog and TLE files, not a live daemon.
func Passes(configDir string, count int, jsonOut bool) error {
	if configDir == "" {
		configDir = config.FindConfigDir()
	}
	if configDir == "" {
		return fmt.Errorf("no config directory found; pass --config")
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "srtctl ", log.LstdFlags)
	loc := ephemeris.ResolveLocation(
		cfg.Station.Latitude, cfg.Station.Longitude,
		cfg.Station.UseGPSD, cfg.Station.GPSDHost, logger,
	)

	tracker, err := ephemeris.NewTracker(loc, cfg.SkyCoordsPath(), logger)
	if err != nil {
		return err
	}

	passes := tracker.Passes(time.Now())
	if count > 0 && count < len(passes) {
		passes = passes[:count]
	}
	if jsonOut {
		return printJSON(passes)
	}

	fmt.Println()
	fmt.Println(header("  UPCOMING PASSES"))
	fmt.Println(rule(60))
	if len(passes) == 0 {
		fmt.Println(colorize(dim, "  no TLE objects in catalog, or no passes in the next 24h"))
	}
	for _, p := range passes {
		fmt.Printf("  %-14s %s  max el %5.1f°  %s\n",
			p.Object,
			p.AOS.Local().Format("Jan 02 15:04:05"),
			p.MaxElev,
			p.Duration.Truncate(time.Second))
	}
	fmt.Println()
	return nil
}
