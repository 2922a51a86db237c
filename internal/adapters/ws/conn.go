// Package ws is the realtime adapter: it upgrades authenticated HTTP
// requests to websocket connections, pumps frames, and fans chat events out
// to the connection sets the presence store resolves.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrBackpressure = errors.New("backpressure")

// Conn wraps one websocket connection with a buffered outbound channel.
// Writes go through TrySend so a slow client never blocks a broadcast.
type Conn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, sendBuffer int) *Conn {
	return &Conn{conn: ws, send: make(chan []byte, sendBuffer)}
}

func (c *Conn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
