package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errClientClosed  = errors.New("ws client closed")
	errSendQueueFull = errors.New("ws send queue full")
)

type ClientConfig struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

// Client is one viewer connection. Deliver only enqueues; writePump owns
// every write to the socket.
type Client struct {
	conn *websocket.Conn
	cfg  ClientConfig

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		conn: conn,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) Deliver(payload []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		// a viewer this far behind is treated as disconnected
		return errSendQueueFull
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards viewer frames and returns once the connection drops.
func (c *Client) readPump() {
	pongWait := 2 * c.cfg.PingInterval

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}
