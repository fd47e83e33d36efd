// Package ctl implements the client-side commands for srtctl. It talks to a
// running srtd over the daemon's two ZeroMQ sockets and renders the results
// to the terminal.
package ctl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/large-farva/srt-control/internal/telemetry"
)

// SendCommand pushes one raw command line to the daemon's PULL socket.
func SendCommand(endpoint, command string) error {
	sock, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		return err
	}
	defer sock.Close()
	// Give the outgoing frame a bounded flush window on close.
	if err := sock.SetLinger(2 * time.Second); err != nil {
		return err
	}
	if err := sock.Connect(endpoint); err != nil {
		return fmt.Errorf("connect %s: %w", endpoint, err)
	}
	if _, err := sock.Send(command, 0); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// statusStream subscribes to the daemon's PUB socket and yields decoded
// snapshots until stop returns true or receiving fails.
func statusStream(endpoint string, timeout time.Duration, each func(telemetry.Status) (stop bool)) error {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	defer sock.Close()
	if err := sock.SetSubscribe(""); err != nil {
		return err
	}
	if err := sock.SetRcvtimeo(timeout); err != nil {
		return err
	}
	if err := sock.Connect(endpoint); err != nil {
		return fmt.Errorf("connect %s: %w", endpoint, err)
	}

	for {
		raw, err := sock.RecvBytes(0)
		if err != nil {
			return fmt.Errorf("no status from %s within %s: %w", endpoint, timeout, err)
		}
		var s telemetry.Status
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		if each(s) {
			return nil
		}
	}
}

// ReceiveStatus waits for a single status snapshot.
func ReceiveStatus(endpoint string, timeout time.Duration) (telemetry.Status, error) {
	var out telemetry.Status
	err := statusStream(endpoint, timeout, func(s telemetry.Status) bool {
		out = s
		return true
	})
	return out, err
}

// printJSON prints v as indented JSON to stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
