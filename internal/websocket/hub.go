package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// SyncFunc loads the arena state shown to a player on STATE_SYNC.
type SyncFunc func(ctx context.Context, playerID string) (interface{}, error)

// Hub fans committed arena events out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	seq        uint64
	syncFn     SyncFunc
	mu         sync.RWMutex
}

func NewHub(syncFn SyncFunc) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		syncFn:     syncFn,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.enqueue(data) {
					log.Printf("websocket: dropping event for slow client %s", client.playerID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop shuts the hub down and closes every client. It blocks until Run has
// returned.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister safely unregisters a client, handling the case where the hub may be stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all clients. Events are numbered in the order
// they are broadcast.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	msg, err := NewMessage(MessageType(eventType), payload)
	if err != nil {
		log.Printf("ERROR [websocket.Broadcast] build %s: %v", eventType, err)
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.seq++
	msg.Seq = h.seq
	h.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ERROR [websocket.Broadcast] marshal %s: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}
