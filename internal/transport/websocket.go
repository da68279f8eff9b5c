// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	applog "github.com/Kitkacy/PunchyAudio/internal/log"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
)

// BarsPath is the WebSocket endpoint served by WebSocketBroadcaster.
const BarsPath = "/bars"

const writeTimeout = time.Second

// BarMessage is the JSON form of a snapshot, shared by the WebSocket stream
// and the analyze command's line output.
type BarMessage struct {
	Seq  uint64    `json:"seq"`
	Ts   int64     `json:"ts"` // Unix nanoseconds
	Bars []float64 `json:"bars"`
}

// NewBarMessage converts a snapshot into its JSON form.
func NewBarMessage(snap Snapshot) BarMessage {
	return BarMessage{Seq: snap.Sequence, Ts: snap.Timestamp.UnixNano(), Bars: snap.Bars}
}

// WebSocketBroadcaster serves BarsPath and, on every tick, pushes the latest
// snapshot to all connected clients as JSON text messages.
//
// Thread Safety:
// - clientsMu guards the client map and serialises writes
// - Clients that fail a write are closed and dropped
// - Ticks where the sequence has not advanced send nothing
type WebSocketBroadcaster struct {
	addr     string
	interval time.Duration
	source   Reader

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	server    *http.Server

	bars    []float64 // reused LoadInto destination
	lastSeq uint64
}

// NewWebSocketBroadcaster creates a broadcaster for addr ("host:port"). If
// interval is invalid (<= 0) it defaults to 33ms (~30Hz).
func NewWebSocketBroadcaster(addr string, interval time.Duration, source Reader) *WebSocketBroadcaster {
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("WebSocketBroadcaster: Invalid interval provided, defaulting to %s", interval)
	}

	b := &WebSocketBroadcaster{
		addr:     addr,
		interval: interval,
		source:   source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualisers are served from anywhere.
			},
		},
		clients: make(map[*websocket.Conn]bool),
	}
	b.server = &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return b
}

// Handler returns the HTTP handler serving BarsPath.
func (b *WebSocketBroadcaster) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(BarsPath, b.handleWebSocket)
	return mux
}

// Run listens on the configured address and broadcasts until ctx is
// cancelled. It returns nil on cancellation and the listener or server
// error otherwise.
func (b *WebSocketBroadcaster) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return eris.Wrapf(err, "failed to listen on '%s'", b.addr)
	}
	applog.Infof("WebSocketBroadcaster: Serving ws://%s%s (Interval: %s)", ln.Addr(), BarsPath, b.interval)

	serveErr := make(chan error, 1)
	go func() {
		if err := b.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- eris.Wrap(err, "websocket server failed")
		}
		close(serveErr)
	}()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.broadcastLatest()
		case err := <-serveErr:
			b.Close()
			return err
		case <-ctx.Done():
			applog.Infof("WebSocketBroadcaster: Context cancelled, shutting down.")
			return b.Close()
		}
	}
}

// broadcastLatest sends the latest snapshot if it is newer than the last
// one sent. It reports whether anything was sent.
func (b *WebSocketBroadcaster) broadcastLatest() bool {
	snap, ok := b.source.LoadInto(b.bars)
	if !ok {
		return false
	}
	b.bars = snap.Bars
	if snap.Sequence == b.lastSeq {
		return false
	}
	b.lastSeq = snap.Sequence

	if err := b.Send(snap); err != nil {
		applog.Errorf("WebSocketBroadcaster: Error broadcasting frame %d: %v", snap.Sequence, err)
		return false
	}
	return true
}

// handleWebSocket upgrades the connection and registers the client. A
// reader goroutine drops the client once the connection fails.
func (b *WebSocketBroadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketBroadcaster: Upgrade error: %v", err)
		return
	}

	b.clientsMu.Lock()
	b.clients[conn] = true
	total := len(b.clients)
	b.clientsMu.Unlock()
	applog.Infof("WebSocketBroadcaster: Client %s connected, total: %d", conn.RemoteAddr(), total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.drop(conn)
				return
			}
		}
	}()
}

func (b *WebSocketBroadcaster) drop(conn *websocket.Conn) {
	b.clientsMu.Lock()
	_, ok := b.clients[conn]
	delete(b.clients, conn)
	total := len(b.clients)
	b.clientsMu.Unlock()

	conn.Close()
	if ok {
		applog.Infof("WebSocketBroadcaster: Client disconnected, total: %d", total)
	}
}

// Send implements Transport by writing snap as one JSON text message to
// every client.
func (b *WebSocketBroadcaster) Send(snap Snapshot) error {
	payload, err := json.Marshal(NewBarMessage(snap))
	if err != nil {
		return eris.Wrap(err, "failed to encode bar message")
	}

	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	for client := range b.clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			applog.Warnf("WebSocketBroadcaster: Error sending to client %s: %v", client.RemoteAddr(), err)
			client.Close()
			delete(b.clients, client)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (b *WebSocketBroadcaster) Clients() int {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	return len(b.clients)
}

// Close disconnects every client and shuts the server down. It is safe to
// call more than once.
func (b *WebSocketBroadcaster) Close() error {
	b.clientsMu.Lock()
	for client := range b.clients {
		client.Close()
		delete(b.clients, client)
	}
	b.clientsMu.Unlock()

	if err := b.server.Close(); err != nil {
		return eris.Wrap(err, "failed to close websocket server")
	}
	return nil
}

var _ Transport = (*WebSocketBroadcaster)(nil)
