// Package wsconn wraps a gorilla WebSocket connection with the small surface
// both relays need: an identity for logs, deadline-guarded writes that are
// safe from multiple handler goroutines, and close helpers.
package wsconn

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type Conn struct {
	id string
	ws *websocket.Conn

	// mu serializes writes; gorilla connections support one concurrent writer.
	mu sync.Mutex
}

func New(ws *websocket.Conn) *Conn {
	return &Conn{
		id: uuid.NewString(),
		ws: ws,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() string { return c.ws.RemoteAddr().String() }

func (c *Conn) SetReadLimit(limit int64) { c.ws.SetReadLimit(limit) }

// ReadMessage blocks for the next frame.
func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

// WriteText sends one text frame. Safe for concurrent use.
func (c *Conn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// WriteJSON marshals v and sends it as one text frame.
func (c *Conn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteText(data)
}

// CloseWith sends a close control frame with the given code and reason.
func (c *Conn) CloseWith(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
