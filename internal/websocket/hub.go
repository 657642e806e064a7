package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/models"
)

// Hub fans progress events and operation results out to connected clients.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to all clients
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Msg("Client connected")

			welcome := models.WebSocketMessage{
				Type: "connection",
				Data: map[string]string{
					"status":  "connected",
					"message": "Connected to analysis session",
				},
			}
			if msg, err := json.Marshal(welcome); err == nil {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.mu.Unlock()
				log.Info().Str("client_id", client.id).Msg("Client disconnected")
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Progress traffic is advisory; a slow client just
					// misses updates.
					log.Warn().Str("client_id", client.id).Msg("Client send buffer full")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastProgress pushes one progress update to every client. Drops the
// event when the broadcast queue is full rather than stalling the pass
// that produced it.
func (h *Hub) BroadcastProgress(p models.Progress) {
	message := models.WebSocketMessage{
		Type: "progress",
		Data: p,
	}
	msg, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

// Broadcast sends an arbitrary message to every client.
func (h *Hub) Broadcast(message models.WebSocketMessage) {
	if msg, err := json.Marshal(message); err == nil {
		h.broadcast <- msg
	}
}

// GetConnectedClients returns the number of connected clients.
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
