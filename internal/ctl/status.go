package ctl

import (
	"fmt"
	"sort"
	"time"
)

// statusTimeout is how long query commands wait for a snapshot before
// concluding the daemon is unreachable. The daemon publishes at 2 Hz, so a
// few seconds is generous.
const statusTimeout = 5 * time.Second

// Status fetches one snapshot and prints a formatted summary.
func Status(statusEndpoint string, jsonOut bool) error {
	s, err := ReceiveStatus(statusEndpoint, statusTimeout)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(s)
	}

	tracking := "idle"
	if s.QueuedItem != "None" {
		tracking = s.QueuedItem
	}

	fmt.Println()
	fmt.Println(header("  SRT DAEMON STATUS"))
	fmt.Println(rule(44))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Pointing:"), formatPose(s.MotorAzEl))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Commanded:"), formatPose(s.MotorCmdAzEl))
	fmt.Printf("  %-16s (%.2f, %.2f)\n", colorize(dim, "Offsets:"), s.MotorOffsets[0], s.MotorOffsets[1])
	fmt.Printf("  %-16s az [%g, %g]  el [%g, %g]\n", colorize(dim, "Limits:"),
		s.AzLimits[0], s.AzLimits[1], s.ElLimits[0], s.ElLimits[1])
	fmt.Printf("  %-16s %s\n", colorize(dim, "Center freq:"), formatMHz(s.CenterFrequency))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Bandwidth:"), formatMHz(s.Bandwidth))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Command:"), colorize(cyan, tracking))
	fmt.Printf("  %-16s %d\n", colorize(dim, "Queue size:"), s.QueueSize)
	fmt.Printf("  %-16s %.4f, %.4f\n", colorize(dim, "Station:"), s.Location.Latitude, s.Location.Longitude)
	if s.EmergencyContact != "" {
		fmt.Printf("  %-16s %s\n", colorize(dim, "Contact:"), s.EmergencyContact)
	}
	fmt.Println()
	return nil
}

// Objects prints the current object catalog with apparent positions.
func Objects(statusEndpoint string, jsonOut bool) error {
	s, err := ReceiveStatus(statusEndpoint, statusTimeout)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(s.ObjectLocs)
	}

	names := make([]string, 0, len(s.ObjectLocs))
	for name := range s.ObjectLocs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Println(header("  SKY OBJECTS"))
	fmt.Println(rule(44))
	for _, name := range names {
		p := s.ObjectLocs[name]
		visible := ""
		if p[1] > 0 {
			visible = colorize(green, " up")
		}
		fmt.Printf("  %-14s %s%s\n", name, formatPose(p), visible)
	}
	fmt.Println()
	return nil
}

// Logs prints the daemon's operator-visible error log.
func Logs(statusEndpoint string, limit int, jsonOut bool) error {
	s, err := ReceiveStatus(statusEndpoint, statusTimeout)
	if err != nil {
		return err
	}
	entries := s.ErrorLogs
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Println()
	fmt.Println(header("  DAEMON LOG"))
	fmt.Println(rule(44))
	for _, e := range entries {
		fmt.Printf("  %s  %s\n", colorize(dim, formatLogTime(e.Timestamp)), e.Message)
	}
	fmt.Println()
	return nil
}
