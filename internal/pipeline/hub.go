package pipeline

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kdimtricp/zonewatch/internal/models"
)

// Hub broadcasts newly recorded sightings to connected websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[HUB] client connected, total: %d", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()
			log.Printf("[HUB] client disconnected, total: %d", h.ClientCount())

		case message := <-h.broadcast:
			h.mu.RLock()
			var dead []*websocket.Conn
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Printf("[HUB] failed to send message: %v", err)
					dead = append(dead, client)
				}
			}
			h.mu.RUnlock()
			if len(dead) > 0 {
				h.mu.Lock()
				for _, client := range dead {
					delete(h.clients, client)
					client.Close()
				}
				h.mu.Unlock()
			}
		}
	}
}

func (h *Hub) Register(client *websocket.Conn) {
	h.register <- client
}

func (h *Hub) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// BroadcastSighting pushes a sighting to all clients. The send is
// non-blocking: if the hub is saturated the update is dropped, the history
// log is the source of truth.
func (h *Hub) BroadcastSighting(s models.Sighting) {
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("[HUB] failed to marshal sighting: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[HUB] broadcast queue full, dropping update")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
