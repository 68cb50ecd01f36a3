package websocket

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"
	"tipster-chat/contract"
	"tipster-chat/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Bodies above the message length still fit, the sanitizer answers them
	defaultMaxFrameSize = 64 * 1024
)

// Client is one websocket connection.
// The read pump turns frames into dispatcher events, the write pump drains the send buffer.
type Client struct {
	id         domain.ConnectionID
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	dispatcher contract.IDispatcher
	identity   string
	addr       string
	limiter    *rate.Limiter
	maxFrame   int64
	log        *slog.Logger

	mu          sync.Mutex
	displayName string
}

func NewClient(
	conn *websocket.Conn,
	hub *Hub,
	dispatcher contract.IDispatcher,
	identity, addr string,
	limiter *rate.Limiter,
	maxFrameSize int64,
	log *slog.Logger) *Client {
	if maxFrameSize <= 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	conn.SetReadLimit(maxFrameSize)
	return &Client{
		id:         domain.NewConnectionID(),
		conn:       conn,
		send:       make(chan []byte, hub.bufferSize),
		hub:        hub,
		dispatcher: dispatcher,
		identity:   identity,
		addr:       addr,
		limiter:    limiter,
		maxFrame:   maxFrameSize,
		log:        log,
	}
}

// DisplayName is the username of the last join, "Anonymous" before any.
func (c *Client) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.displayName == "" {
		return domain.AnonymousSender
	}
	return c.displayName
}

func (c *Client) setDisplayName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.displayName = name
}

// readPump runs until the connection fails, then leaves every room of the connection.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.dispatcher.OnDisconnect(ctx, c.id, c.DisplayName())
		c.hub.Unregister(c.id)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("Error closing connection in readPump", "conn", c.id, "error", err)
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.log.Warn("Rate limit exceeded, discarding frame", "conn", c.id, "addr", c.addr)
			continue
		}
		c.process(ctx, raw)
	}
}

func (c *Client) process(ctx context.Context, raw []byte) {
	evt, err := DecodeEvent(raw)
	if err != nil {
		c.log.Warn("Dropping frame", "conn", c.id, "addr", c.addr, "error", err)
		return
	}
	if join, ok := evt.(domain.JoinEvent); ok {
		c.setDisplayName(join.Username)
	}
	c.dispatcher.Handle(ctx, c.id, c.identity, evt)
}

func (c *Client) logReadError(err error) {
	switch {
	case stderrors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "conn", c.id, "max", c.maxFrame)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		isExpectedCloseError(err):
		c.log.Debug("Client disconnected", "conn", c.id, "addr", c.addr)
	default:
		c.log.Info("Websocket read error", "conn", c.id, "addr", c.addr, "error", err)
	}
}

// writePump writes one frame per payload and pings the peer.
// A closed send buffer means the hub dropped the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Info("Error writing frame", "conn", c.id, "error", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
