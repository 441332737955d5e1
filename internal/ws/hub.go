package ws

import (
	"encoding/json"
	"log"
	"sync"

	"stock2coat/internal/model"

	"github.com/gofiber/contrib/websocket"
)

// EventType is the kind of row-level change carried by the feed.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is the wire shape of one authoritative row change on the
// inventory_items table. Old is zero-valued for inserts, New for deletes.
type ChangeEvent struct {
	EventType EventType            `json:"eventType"`
	New       *model.InventoryItem `json:"new,omitempty"`
	Old       *model.InventoryItem `json:"old,omitempty"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte),
	}
}

// BroadcastChange serializes a row change and queues it for all clients.
// Call after the database transaction has committed so events reach
// subscribers in commit order.
func (h *Hub) BroadcastChange(event ChangeEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Println("WS: failed to marshal change event:", err)
		return
	}
	h.Broadcast <- msg
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS Client Connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}
