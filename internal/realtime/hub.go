package realtime

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BlogRoom returns the room key for viewers of a blog
func BlogRoom(blogID int64) string {
	return "blog:" + strconv.FormatInt(blogID, 10)
}

// Options configures websocket clients served by the hub
type Options struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	AllowedOrigins []string
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
		AllowedOrigins: []string{"*"},
	}
}

// Stats is a snapshot of hub occupancy
type Stats struct {
	Connections int            `json:"connections"`
	Rooms       map[string]int `json:"rooms"`
}

// Hub is the process-wide room registry. Emits to rooms nobody has
// joined, or on a nil hub, are no-ops; there is no replay.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	closed  bool

	opts Options
	log  zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(opts Options, log zerolog.Logger) *Hub {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		opts:    opts,
		log:     log.With().Str("component", "realtime").Logger(),
	}
}

// frame is the outbound wire envelope
type frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(frame{Event: event, Data: payload})
}

// Emit fans an event out to every connection in room. Failures are
// logged and never returned.
func (h *Hub) Emit(room, event string, payload interface{}) {
	if h == nil {
		return
	}
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Warn().Err(err).Str("room", room).Str("event", event).Msg("Failed to encode event")
		return
	}
	delivered := h.Deliver(room, data)

	h.log.Debug().
		Str("room", room).
		Str("event", event).
		Int("delivered", delivered).
		Msg("Event emitted")
}

// Deliver sends a pre-encoded frame to the room and returns how many
// connections accepted it. Connections whose buffers are full are dropped.
func (h *Hub) Deliver(room string, data []byte) int {
	if h == nil {
		return 0
	}

	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("client_id", c.id).Str("room", room).Msg("Send buffer full, dropping client")
		h.unregister(c)
	}
	return delivered
}

// Join subscribes a client to a room
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave unsubscribes a client from a room
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister removes the client from every room and closes its send
// channel. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

// RoomSize returns the number of connections in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Stats returns connection and room counts
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{
		Connections: len(h.clients),
		Rooms:       make(map[string]int, len(h.rooms)),
	}
	for room, members := range h.rooms {
		stats.Rooms[room] = len(members)
	}
	return stats
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	h.log.Info().Int("clients", len(clients)).Msg("Realtime hub closed")
}
