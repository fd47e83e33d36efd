// Package transport owns the daemon's two ZeroMQ endpoints: the PULL socket
// commands arrive on and the PUB socket status snapshots go out on.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

// Ingress receives operator command strings on a PULL socket and forwards
// them, verbatim, to a channel. No parsing or validation happens here.
type Ingress struct {
	sock *zmq4.Socket
	log  *log.Logger
}

// NewIngress binds the command socket, e.g. "tcp://*:5556".
func NewIngress(bind string, logger *log.Logger) (*Ingress, error) {
	sock, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, fmt.Errorf("command socket: %w", err)
	}
	if err := sock.Bind(bind); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bind %s: %w", bind, err)
	}
	// A receive timeout keeps the loop responsive to shutdown.
	if err := sock.SetRcvtimeo(500 * time.Millisecond); err != nil {
		sock.Close()
		return nil, err
	}
	return &Ingress{sock: sock, log: logger}, nil
}

// Run forwards received frames to out until the context is cancelled.
func (in *Ingress) Run(ctx context.Context, out chan<- string) {
	defer in.sock.Close()
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := in.sock.Recv(0)
		if err != nil {
			// Timeouts are the idle path; anything else is worth a log line.
			if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
				in.log.Printf("transport: command recv: %v", err)
			}
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Publisher broadcasts JSON documents on a PUB socket.
type Publisher struct {
	sock *zmq4.Socket
}

// NewPublisher binds the status socket, e.g. "tcp://*:5555".
func NewPublisher(bind string) (*Publisher, error) {
	sock, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("status socket: %w", err)
	}
	if err := sock.Bind(bind); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bind %s: %w", bind, err)
	}
	return &Publisher{sock: sock}, nil
}

// PublishJSON marshals v and sends it as one frame.
func (p *Publisher) PublishJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.sock.SendBytes(b, 0)
	return err
}

// Close releases the socket.
func (p *Publisher) Close() error {
	return p.sock.Close()
}
