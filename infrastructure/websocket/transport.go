// Package websocket connects the client to a node-server over a websocket.
package websocket

import (
	"context"
	"dsatter-client/contract"
	"dsatter-client/errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to send the close frame on terminate.
	closeWait = time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20

	DefaultHandshakeTimeout = 5 * time.Second
)

// Factory builds one Transport per connect attempt.
type Factory struct {
	log    *slog.Logger
	dialer *ws.Dialer
}

func NewFactory(log *slog.Logger, handshakeTimeout time.Duration) *Factory {
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}
	return &Factory{
		log: log,
		dialer: &ws.Dialer{
			HandshakeTimeout: handshakeTimeout,
			Proxy:            ws.DefaultDialer.Proxy,
		},
	}
}

func (f *Factory) NewTransport(url string, onFrame contract.FrameHandler) contract.Transport {
	return NewTransport(f.log, f.dialer, url, onFrame)
}

// Transport is a single websocket connection attempt to a node-server.
// Start dials in the background, every text frame read afterwards is
// passed to onFrame from the read goroutine.
type Transport struct {
	id      string
	url     string
	log     *slog.Logger
	dialer  *ws.Dialer
	onFrame contract.FrameHandler

	connected atomic.Bool
	connErr   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex // guards conn and terminated, never held while writing
	conn       *ws.Conn
	terminated bool

	writeMu sync.Mutex // one writer at a time on conn
}

func NewTransport(log *slog.Logger, dialer *ws.Dialer, url string, onFrame contract.FrameHandler) *Transport {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		id:      id,
		url:     url,
		log:     log.With("transport", id, "url", url),
		dialer:  dialer,
		onFrame: onFrame,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (t *Transport) Start() {
	go t.run()
}

func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

func (t *Transport) HasConnectionError() bool {
	return t.connErr.Load()
}

func (t *Transport) run() {
	conn, _, err := t.dialer.DialContext(t.ctx, t.url, nil)
	if err != nil {
		t.log.Debug("WebSocket dial failed", "error", err)
		t.connErr.Store(true)
		return
	}

	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		_ = conn.Close()
		t.connErr.Store(true)
		return
	}
	t.conn = conn
	t.mu.Unlock()

	conn.SetReadLimit(maxMessageSize)
	t.connected.Store(true)
	t.log.Debug("WebSocket connected")
	t.readPump(conn)
}

func (t *Transport) readPump(conn *ws.Conn) {
	defer t.connected.Store(false)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if t.isTerminated() {
				return
			}
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				t.log.Error("WebSocket read error", "error", err)
			}
			t.log.Warn("Connection to node-server lost")
			t.connected.Store(false)
			t.connErr.Store(true)
			return
		}
		if messageType != ws.TextMessage {
			t.log.Debug("Ignoring non text frame", "type", messageType)
			continue
		}
		t.onFrame(string(data))
	}
}

func (t *Transport) isTerminated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminated
}

// Send writes one text frame. It fails when the connection is not open.
func (t *Transport) Send(frame string) error {
	t.mu.Lock()
	conn := t.conn
	open := conn != nil && !t.terminated && t.connected.Load()
	t.mu.Unlock()
	if !open {
		return errors.ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(ws.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Terminate closes the connection, or aborts the pending dial. It is idempotent.
// A write still in flight is cut short by the close, the close frame is only
// sent when no write is pending.
func (t *Transport) Terminate() {
	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return
	}
	t.terminated = true
	t.cancel()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return
	}
	if t.writeMu.TryLock() {
		_ = conn.SetWriteDeadline(time.Now().Add(closeWait))
		_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
		t.writeMu.Unlock()
	}
	_ = conn.Close()
	t.log.Debug("WebSocket closed")
}
