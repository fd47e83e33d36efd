// Srtd is the control daemon for a small radio telescope.
//
// It loads the station configuration, opens the rotor and the radio
// pipeline's RPC endpoint, and coordinates pointing, tracking, calibration,
// and recording behind a single serialized command queue. Commands arrive on
// a ZeroMQ PULL socket; status snapshots go out on a PUB socket. Shutdown
// happens on the quit command (stow, then task teardown) or on SIGINT /
// SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/large-farva/srt-control/internal/config"
	"github.com/large-farva/srt-control/internal/daemon"
	"github.com/large-farva/srt-control/internal/ephemeris"
	"github.com/large-farva/srt-control/internal/radio"
	"github.com/large-farva/srt-control/internal/rotor"
	"github.com/large-farva/srt-control/internal/transport"
	"github.com/large-farva/srt-control/internal/ws"
)

// Build-time variables set via -ldflags. For example:
//
//	go build -ldflags "-X main.Version=v1.0.0"
var (
	Version = "dev"
	BuiltAt = "unknown"
)

const (
	commandBind = "tcp://*:5556"
	statusBind  = "tcp://*:5555"
	radioRPCURL = "http://localhost:5557/"
)

func main() {
	var (
		configDir = pflag.StringP("config", "c", "", "Station config directory (auto-discovers if omitted)")
		dashboard = pflag.String("dashboard-bind", "", "Dashboard HTTP bind address (overrides DASHBOARD config key)")
		version   = pflag.Bool("version", false, "Print version and exit")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "srtd ", log.LstdFlags|log.Lmicroseconds)

	if *version {
		logger.Printf("srtd %s (built %s)", Version, BuiltAt)
		return
	}

	dir := *configDir
	if dir == "" {
		dir = config.FindConfigDir()
	}
	if dir == "" {
		log.Fatalf("no config directory found; create %s/%s or pass --config", config.DefaultConfigDir(), config.ConfigFileName)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger.Printf("loaded config from %s", dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := ephemeris.ResolveLocation(
		cfg.Station.Latitude, cfg.Station.Longitude,
		cfg.Station.UseGPSD, cfg.Station.GPSDHost, logger,
	)
	tracker, err := ephemeris.NewTracker(loc, cfg.SkyCoordsPath(), logger)
	if err != nil {
		log.Fatalf("ephemeris: %v", err)
	}

	rot, err := rotor.New(cfg.MotorType, cfg.MotorPort,
		rotor.Limits{Lower: cfg.AzLimits.Lower, Upper: cfg.AzLimits.Upper},
		rotor.Limits{Lower: cfg.ElLimits.Lower, Upper: cfg.ElLimits.Upper},
	)
	if err != nil {
		log.Fatalf("rotor: %v", err)
	}
	defer rot.Close()

	rpc, err := radio.Dial(radioRPCURL)
	if err != nil {
		log.Fatalf("radio rpc: %v", err)
	}

	publisher, err := transport.NewPublisher(statusBind)
	if err != nil {
		log.Fatalf("status socket: %v", err)
	}
	defer publisher.Close()

	ingress, err := transport.NewIngress(commandBind, logger)
	if err != nil {
		log.Fatalf("command socket: %v", err)
	}

	var hub *ws.Hub
	dashBind := *dashboard
	if dashBind == "" {
		dashBind = cfg.Dashboard
	}
	if dashBind != "" {
		hub = ws.NewHub()
		go hub.Run(ctx)
		go func() {
			logger.Printf("dashboard listening on http://%s", dashBind)
			if err := hub.Serve(ctx, dashBind); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("dashboard server: %v", err)
			}
		}()
	}

	d, err := daemon.New(daemon.Options{
		Logger:    logger,
		Cfg:       cfg,
		Tracker:   tracker,
		Rotor:     rot,
		Radio:     rpc,
		Publisher: publisher,
		Hub:       hub,
	})
	if err != nil {
		log.Fatalf("daemon: %v", err)
	}

	go ingress.Run(ctx, d.Commands)

	logger.Printf("commands on %s, status on %s", commandBind, statusBind)
	d.Run(ctx)
	stop()

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
