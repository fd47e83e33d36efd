package ctl

import (
	"fmt"
	"time"

	"github.com/large-farva/srt-control/internal/telemetry"
)

// Watch streams status snapshots to the terminal until interrupted. Each
// line shows the pointing, the active command, and any new log messages
// since the previous snapshot.
func Watch(statusEndpoint string, jsonOut bool) error {
	seenLogs := 0
	first := true

	return statusStream(statusEndpoint, 30*time.Second, func(s telemetry.Status) bool {
		if jsonOut {
			_ = printJSON(s)
			return false
		}

		if first {
			fmt.Println()
			fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, statusEndpoint))
			fmt.Println(rule(50))
			fmt.Println()
			seenLogs = len(s.ErrorLogs)
			first = false
		}

		for ; seenLogs < len(s.ErrorLogs); seenLogs++ {
			e := s.ErrorLogs[seenLogs]
			fmt.Printf("  %s  %s\n", colorize(dim, formatLogTime(e.Timestamp)), colorize(yellow, e.Message))
		}

		fmt.Printf("\r  %s  cmd %s  queue %d ",
			formatPose(s.MotorAzEl),
			colorize(cyan, s.QueuedItem),
			s.QueueSize)
		return false
	})
}
