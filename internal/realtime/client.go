package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one websocket connection.  The hub writes to send; WritePump
// drains it onto the socket.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	actorID   string
	topic     string
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, actorID string, buf int) *Client {
	if buf <= 0 {
		buf = 32
	}
	return &Client{hub: hub, conn: conn, send: make(chan []byte, buf), actorID: actorID}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// WritePump forwards queued frames and pings until the client closes.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.Detach(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.hub.Detach(c)
				return
			}
		}
	}
}

// ReadPump discards inbound frames and detaches the client when the
// connection drops.  The feed is one-way.
func (c *Client) ReadPump() {
	defer c.hub.Detach(c)
	c.conn.SetReadLimit(1 << 12)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
