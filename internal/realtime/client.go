package realtime

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Inbound signals
const (
	EventJoinBlog  = "joinBlog"
	EventLeaveBlog = "leaveBlog"
)

// Message is an inbound frame from a browser
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one websocket connection. Room membership is owned by the hub.
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:    uuid.New().String(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, hub.opts.SendBuffer),
		rooms: make(map[string]struct{}),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// ServeWS upgrades the request and runs the connection until it closes
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.log.Info().Str("client_id", c.id).Str("remote", r.RemoteAddr).Msg("Client connected")

	go c.writePump()
	c.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// readPump handles join/leave signals; returning means disconnect, which
// leaves every room.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.hub.log.Info().Str("client_id", c.id).Msg("Client disconnected")
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("client_id", c.id).Msg("Unexpected close")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.log.Debug().Err(err).Str("client_id", c.id).Msg("Ignoring malformed frame")
		return
	}

	blogID, ok := parseBlogID(msg.Data)
	if !ok {
		return
	}

	switch msg.Event {
	case EventJoinBlog:
		c.hub.Join(c, BlogRoom(blogID))
		c.hub.log.Debug().Str("client_id", c.id).Int64("blog_id", blogID).Msg("Joined blog room")
	case EventLeaveBlog:
		c.hub.Leave(c, BlogRoom(blogID))
		c.hub.log.Debug().Str("client_id", c.id).Int64("blog_id", blogID).Msg("Left blog room")
	default:
		c.hub.log.Debug().Str("client_id", c.id).Str("event", msg.Event).Msg("Ignoring unknown event")
	}
}

// parseBlogID accepts a JSON number or a numeric string
func parseBlogID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
	} else {
		s = string(raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (c *Client) writePump() {
	pingPeriod := c.hub.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
