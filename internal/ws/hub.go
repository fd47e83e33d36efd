// Package ws serves the optional browser dashboard. The hub consumes the
// daemon's status snapshots and fans them out to WebSocket clients, each
// with its own bounded send queue: a slow client gets its stale snapshots
// coalesced away rather than stalling the publisher or other clients, since
// every snapshot supersedes the last. Late joiners immediately receive the
// newest snapshot, and /api/status exposes it for one-shot reads.
package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/srt-control/internal/telemetry"
)

const (
	// clientQueueLen bounds how many snapshots may sit unsent per client.
	clientQueueLen = 8
	writeWait      = 3 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 20 * time.Second
)

// client is one dashboard connection with its private send queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans status snapshots out to connected dashboard clients.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte // marshaled latest snapshot, replayed to new clients
}

// NewHub allocates an empty hub. Call Run in a goroutine to tie its
// lifetime to the daemon's.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run blocks until ctx is cancelled, then closes every client connection.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	for c := range h.clients {
		_ = c.conn.Close()
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
}

// PublishStatus records s as the latest snapshot and queues it to every
// client. A client whose queue is full has its oldest queued snapshot
// dropped to make room; the newest state always wins.
func (h *Hub) PublishStatus(s telemetry.Status) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.last = b
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- b:
			default:
			}
		}
	}
	h.mu.Unlock()
}

func (h *Hub) lastSnapshot() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// drop unregisters a client and closes its connection. Safe to call more
// than once for the same client.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// writer drains one client's queue onto its connection, interleaving
// keepalive pings. Any write failure drops the client.
func (h *Hub) writer(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.drop(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// reader consumes (and discards) inbound frames so pongs are processed and
// closed connections are noticed promptly.
func (h *Hub) reader(c *client) {
	defer h.drop(c)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handler upgrades incoming requests, registers the client, and primes its
// queue with the latest snapshot.
func (h *Hub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}

		c := &client{conn: conn, send: make(chan []byte, clientQueueLen)}

		h.mu.Lock()
		h.clients[c] = struct{}{}
		if h.last != nil {
			c.send <- h.last
		}
		h.mu.Unlock()

		go h.writer(c)
		go h.reader(c)
	})
}

// Serve runs the dashboard HTTP server on bind until ctx is cancelled.
// Routes: /ws for the live stream, /api/status for the latest snapshot.
func (h *Hub) Serve(ctx context.Context, bind string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.handler())
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if last := h.lastSnapshot(); last != nil {
			_, _ = w.Write(last)
			return
		}
		_, _ = w.Write([]byte("{}"))
	})

	server := &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	return server.Serve(ln)
}
