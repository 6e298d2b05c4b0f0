package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// How often the glossary version is polled; clients refetch at most once per tick
	versionHeartbeatInterval = 2 * time.Second

	// MessageVersionUpdate is the only message type the hub emits
	MessageVersionUpdate = "VERSION_UPDATE"
)

// VersionSource reports the current glossary version
type VersionSource interface {
	GetGlossaryVersion(ctx context.Context) (int64, error)
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and tells them when ratings or
// listings changed
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	versions   VersionSource
	interval   time.Duration

	mu          sync.RWMutex
	lastVersion int64
}

// VersionUpdate represents the version heartbeat message
type VersionUpdate struct {
	Type    string `json:"type"`
	Version int64  `json:"version"`
}

// NewHub creates a new WebSocket hub
func NewHub(versions VersionSource) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		versions:   versions,
		interval:   versionHeartbeatInterval,
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 WebSocket Hub started")

	versionTicker := time.NewTicker(h.interval)
	defer versionTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ Client connected (Total: %d)", total)

			h.sendInitialVersion(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("❌ Client disconnected (Total: %d)", total)

		case <-versionTicker.C:
			h.checkAndBroadcastVersion(ctx)

		case <-ctx.Done():
			log.Println("🛑 WebSocket Hub shutting down")
			return
		}
	}
}

// checkAndBroadcastVersion broadcasts to all clients when the version moved
func (h *Hub) checkAndBroadcastVersion(ctx context.Context) {
	currentVersion, err := h.versions.GetGlossaryVersion(ctx)
	if err != nil {
		log.Printf("❌ Failed to get glossary version: %v", err)
		return
	}

	h.mu.Lock()
	changed := currentVersion != h.lastVersion
	h.lastVersion = currentVersion
	h.mu.Unlock()
	if !changed {
		return
	}

	message, err := encodeVersion(currentVersion)
	if err != nil {
		log.Printf("❌ Failed to marshal version update: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("⚠️ Client send buffer full, skipping")
		}
	}
}

// sendInitialVersion sends the current version to a newly connected client
func (h *Hub) sendInitialVersion(ctx context.Context, client *Client) {
	currentVersion, err := h.versions.GetGlossaryVersion(ctx)
	if err != nil {
		log.Printf("❌ Failed to get initial version: %v", err)
		return
	}

	h.mu.Lock()
	if h.lastVersion == 0 {
		h.lastVersion = currentVersion
	}
	_, exists := h.clients[client]
	h.mu.Unlock()

	if !exists {
		log.Println("⚠️ Client disconnected before initial version could be sent")
		return
	}

	message, err := encodeVersion(currentVersion)
	if err != nil {
		log.Printf("❌ Failed to marshal initial version: %v", err)
		return
	}

	select {
	case client.send <- message:
	case <-time.After(2 * time.Second):
		log.Println("⚠️ Timeout sending initial version - client may be slow")
	}
}

func encodeVersion(version int64) ([]byte, error) {
	return json.Marshal(VersionUpdate{Type: MessageVersionUpdate, Version: version})
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump discards client messages until the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket unexpected close: %v", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		// Coalesce queued updates into the current frame
		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write([]byte{'\n'})
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}

	// The hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles WebSocket requests from clients
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()

	// Blocks until disconnect
	client.readPump()
}
