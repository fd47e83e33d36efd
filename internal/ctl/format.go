package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// colorEnabled reports whether stdout is a terminal. When output is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + reset
}

// header renders a bold section heading.
func header(text string) string {
	return colorize(bold, text)
}

// rule renders a dim horizontal separator of the given width.
func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// formatPose renders an az/el pair for display.
func formatPose(p [2]float64) string {
	return fmt.Sprintf("az %7.2f°  el %6.2f°", p[0], p[1])
}

// formatMHz renders a frequency in user-facing megahertz.
func formatMHz(hz float64) string {
	return fmt.Sprintf("%.3f MHz", hz/1e6)
}

// formatLogTime renders a status log timestamp as local wall-clock time.
func formatLogTime(ts float64) string {
	return time.Unix(int64(ts), 0).Format("15:04:05")
}
