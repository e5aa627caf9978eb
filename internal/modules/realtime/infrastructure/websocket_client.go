package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 16
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errClientClosed   = errors.New("client closed")
)

// Client is one WebSocket connection attached to a hub. Outgoing frames are
// queued on send and written by WritePump only, so a connection sees frames in
// the order they were enqueued.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
	send   chan []byte
}

// NewClient wraps conn with a fresh connection id.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	c := &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, hub.sendBuffer),
	}
	if hub.invocationRate > 0 {
		c.limiter = rate.NewLimiter(hub.invocationRate, hub.invocationBurst)
	}
	return c
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Allow reports whether the client may issue another invocation now.
func (c *Client) Allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// SendMessage encodes msg and queues it for this connection only.
func (c *Client) SendMessage(msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal error", slog.String("hub", c.hub.name), slog.String("connectionId", c.id), slog.Any("error", err))
		return err
	}
	return c.hub.Send(c.id, data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("hub", c.hub.name), slog.String("connectionId", c.id), slog.Any("error", err))
				c.hub.detachClient(c, err)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("websocket ping error", slog.String("hub", c.hub.name), slog.String("connectionId", c.id), slog.Any("error", err))
				c.hub.detachClient(c, err)
				return
			}
		}
	}
}

func (c *Client) ReadPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var cause error
	defer func() {
		c.hub.detachClient(c, cause)
		// Invocations run on this goroutine, so a join that raced a detach
		// from the write side is dropped here.
		c.hub.dropLateMemberships(c)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				cause = err
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var inv Invocation
		if err := json.Unmarshal(data, &inv); err != nil {
			c.hub.invocations.fail(c, Invocation{}, errors.Join(ErrInvalidArguments, err))
			continue
		}
		c.hub.invocations.Process(context.Background(), c, inv)
	}
}
