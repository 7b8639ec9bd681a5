package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// WSMessage is the envelope for messages pushed to WebSocket clients.
type WSMessage struct {
	Type    string      `json:"type"` // "trajectory", "error"
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Client represents a connected WebSocket client.
type Client struct {
	conn     *websocket.Conn
	deviceID string
	send     chan []byte
}

// Hub manages WebSocket clients grouped by deviceID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // deviceID -> set of clients
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

// ServeWS handles WebSocket upgrade and client lifecycle.
// URL: /api/track/{deviceID}
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Extract deviceID from path: /api/track/tracker-17
	path := strings.TrimPrefix(r.URL.Path, "/api/track/")
	deviceID := strings.TrimSuffix(path, "/")
	if deviceID == "" {
		http.Error(w, "device_id required", http.StatusBadRequest)
		return
	}

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		client := &Client{
			conn:     conn,
			deviceID: deviceID,
			send:     make(chan []byte, 256),
		}

		h.register(client)
		defer h.unregister(client)

		slog.Info("client connected",
			"device_id", deviceID,
			"remote", conn.Request().RemoteAddr)

		// Write pump
		go func() {
			for msg := range client.send {
				if _, err := conn.Write(msg); err != nil {
					return
				}
			}
		}()

		// Read pump (for close detection)
		buf := make([]byte, 512)
		for {
			_, err := conn.Read(buf)
			if err != nil {
				return
			}
		}
	})

	wsHandler.ServeHTTP(w, r)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.deviceID] == nil {
		h.clients[c.deviceID] = make(map[*Client]bool)
	}
	h.clients[c.deviceID][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[c.deviceID]; ok {
		delete(clients, c)
		close(c.send)
		if len(clients) == 0 {
			delete(h.clients, c.deviceID)
		}
	}
	slog.Info("client disconnected", "device_id", c.deviceID)
}

// Broadcast sends a message to all clients subscribed to a deviceID.
func (h *Hub) Broadcast(deviceID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	clients := h.clients[deviceID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.send <- data:
		default:
			slog.Warn("client buffer full", "device_id", deviceID)
		}
	}
}

// CloseAll closes all client connections.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
