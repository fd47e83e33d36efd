// Srtctl is the command-line client for a running srtd instance. It submits
// operator commands over the daemon's PULL socket and reads live status from
// the PUB socket.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/large-farva/srt-control/internal/ctl"
)

func main() {
	var (
		commandEP = pflag.String("command-endpoint", "", "Daemon command socket (default tcp://127.0.0.1:5556, or ctl.toml)")
		statusEP  = pflag.String("status-endpoint", "", "Daemon status socket (default tcp://127.0.0.1:5555, or ctl.toml)")
		configDir = pflag.StringP("config", "c", "", "Station config directory (passes command only)")
		jsonOut   = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so the raw command line after "send" is passed through intact.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	prefs, err := ctl.LoadPreferences()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *commandEP == "" {
		*commandEP = prefs.Endpoints.Command
	}
	if *statusEP == "" {
		*statusEP = prefs.Endpoints.Status
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	switch cmd {
	case "send":
		if len(subArgs) == 0 {
			fmt.Fprintln(os.Stderr, "error: send needs a command line, e.g. srtctl send azel 180 45")
			os.Exit(2)
		}
		err = ctl.SendCommand(*commandEP, strings.Join(subArgs, " "))

	case "status":
		err = ctl.Status(*statusEP, *jsonOut)

	case "objects":
		err = ctl.Objects(*statusEP, *jsonOut)

	case "logs":
		opts := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		limit := opts.Int("limit", 0, "Limit number of log entries shown")
		_ = opts.Parse(subArgs)
		err = ctl.Logs(*statusEP, *limit, *jsonOut)

	case "passes":
		opts := pflag.NewFlagSet("passes", pflag.ContinueOnError)
		count := opts.Int("count", 0, "Limit number of passes shown")
		_ = opts.Parse(subArgs)
		err = ctl.Passes(*configDir, *count, *jsonOut)

	case "watch":
		err = ctl.Watch(*statusEP, *jsonOut)

	// Shorthand for the common operator actions; anything not recognized
	// here is forwarded verbatim, so "srtctl stow" and "srtctl send stow"
	// are equivalent.
	default:
		line := cmd
		if len(subArgs) > 0 {
			line += " " + strings.Join(subArgs, " ")
		}
		err = ctl.SendCommand(*commandEP, line)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  srtctl — small radio telescope control CLI

  USAGE
    srtctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show pointing, radio settings, and queue state
    objects         List catalog objects with apparent az/el
    logs            Show the daemon's operator log
    passes          List upcoming satellite passes (local computation)

  COMMANDS (control)
    send LINE...    Submit a raw daemon command (e.g. send Sun n)
    <anything else> Forwarded to the daemon verbatim (srtctl stow)

  COMMANDS (live)
    watch           Stream live status (Ctrl-C to stop)

  GLOBAL FLAGS
        --command-endpoint ADDR   Command socket (default tcp://127.0.0.1:5556)
        --status-endpoint ADDR    Status socket (default tcp://127.0.0.1:5555)
    -c, --config DIR              Station config directory (passes only)
        --json                    Output raw JSON instead of formatted text

  COMMAND FLAGS
    logs:
        --limit N       Limit number of log entries shown
    passes:
        --count N       Limit number of passes shown

  EXAMPLES
    srtctl status
    srtctl objects
    srtctl send Sun
    srtctl send azel 180 45
    srtctl send offset 1.0 0.5
    srtctl stow
    srtctl watch
    srtctl passes --count 5
    srtctl logs --limit 20

`)
}
