package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/doudizhu/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the peer.
	maxMessageSize = 8192

	// Outbound queue depth per session.
	sendQueueSize = 256
)

// Connection wraps one websocket session: a user identity, an outbound
// queue drained by a dedicated writer, and the session's current room
// binding. The room manager stores only the TrySend capability.
type Connection struct {
	conn   *websocket.Conn
	send   chan protocol.Envelope
	userID uint64
	name   string
	logger zerolog.Logger
	clock  quartz.Clock

	// roomID is touched only by the session goroutine.
	roomID string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, userID uint64, name string, logger zerolog.Logger, clock quartz.Clock) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan protocol.Envelope, sendQueueSize),
		userID: userID,
		name:   name,
		logger: logger.With().Uint64("user", userID).Logger(),
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close tears the session down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// TrySend queues a message without blocking. A full queue or a closed
// session drops the message; the disconnected session is reaped by its own
// teardown, so back-pressure on one recipient never stalls a room.
func (c *Connection) TrySend(msg protocol.Envelope) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Debug().Str("type", msg.Type).Msg("send queue full, dropping message")
	}
}

// writePump serializes queued messages onto the transport and keeps the
// peer alive with periodic pings.
func (c *Connection) writePump() {
	ticker := c.clock.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
