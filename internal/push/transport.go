// Package push is the Push Endpoint (§4.H): accepts push connections
// over WebSocket, authenticates them, relays client control messages,
// and implements registry.Transport on top of gorilla/websocket.
// Grounded on the teacher's pkg/websocket/client.go
// (send-channel + single handling goroutine, ping/pong deadlines,
// fast-path JSON type dispatch), generalized from the teacher's hub
// registration model to calling internal/registry directly.
package push

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// wsTransport adapts a *websocket.Conn to registry.Transport. All
// writes go through a buffered channel drained by a single writer
// goroutine, so sends are serialized per connection (§5 ordering
// guarantee: one outstanding send at a time per connection).
type wsTransport struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newTransport(conn *websocket.Conn) *wsTransport {
	t := &wsTransport{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// SendText enqueues data for delivery; implements registry.Transport.
// A full send buffer is treated as backpressure from a slow consumer
// and reported as a send failure (§5 backpressure policy), which
// causes the caller to evict the connection.
func (t *wsTransport) SendText(data []byte) error {
	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return websocket.ErrCloseSent
	default:
		return errSendBufferFull
	}
}

func (t *wsTransport) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-t.send:
			if !ok {
				return
			}
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// Close stops the writer goroutine and closes the underlying socket.
// Implements registry.Transport. Safe to call more than once.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.conn.Close()
}

// RemoteAddr implements registry.Transport.
func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
