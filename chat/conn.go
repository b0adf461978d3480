package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Conn is one admitted websocket client. Writes go through a single writer
// goroutine; Emit never blocks the caller.
type Conn struct {
	ID   string
	User *models.User

	ws   *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	closed   bool
	closeMsg []byte
}

func newConn(ws *websocket.Conn, user *models.User) *Conn {
	return &Conn{
		ID:   uuid.New().String(),
		User: user,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
	}
}

// Emit queues an event for delivery to this connection
func (c *Conn) Emit(event string, data interface{}) error {
	b, err := json.Marshal(outboundEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close flushes queued events, then sends a close frame with the given code and
// reason and drops the connection. Reason may be empty.
func (c *Conn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeMsg = websocket.FormatCloseMessage(code, reason)
	close(c.send)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, c.closeMsg)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				zap.S().Debugw("chat write failed", "connId", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump hands every inbound text frame to handle, in arrival order, until the
// peer goes away or the connection is closed.
func (c *Conn) readPump(handle func([]byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Infow("chat connection dropped", "connId", c.ID, "error", err)
			}
			return
		}
		handle(data)
	}
}
