package ws

import (
	"context"
	"encoding/json"
	"sync"

	"chat-assistant/backend/pkg/logger"
)

const (
	EventMessageCreated = "message.created"
	EventMessageStatus  = "message.status"
	EventPong           = "pong"
	EventError          = "error"
)

// Event is the envelope pushed to websocket clients
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// delivery targets every connection of userID, or only client when set
type delivery struct {
	userID  uint
	client  *Client
	payload []byte
}

// Hub tracks websocket clients per user and fans events out to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	publish    chan delivery
	done       chan struct{}
	logger     *logger.Logger

	mu     sync.RWMutex
	counts map[uint]int
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan delivery, 64),
		done:       make(chan struct{}),
		logger:     log.Channel("websocket"),
		counts:     make(map[uint]int),
	}
}

// Run processes registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = map[uint]map[*Client]struct{}{}
			h.setCounts()
			return

		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			h.setCounts()
			h.logger.Debug("Client registered", "user_id", client.userID)

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.publish:
			if d.client != nil {
				if _, ok := h.clients[d.client.userID][d.client]; ok {
					h.send(d.client, d.payload)
				}
				continue
			}
			for client := range h.clients[d.userID] {
				h.send(client, d.payload)
			}
		}
	}
}

func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("Client removed due to blocked channel", "user_id", client.userID)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.setCounts()
	h.logger.Debug("Client unregistered", "user_id", client.userID)
}

func (h *Hub) setCounts() {
	counts := make(map[uint]int, len(h.clients))
	for id, set := range h.clients {
		counts[id] = len(set)
	}

	h.mu.Lock()
	h.counts = counts
	h.mu.Unlock()
}

// ClientCount returns the number of open connections for userID
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[userID]
}

// TotalClients returns the number of open connections across all users
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, n := range h.counts {
		total += n
	}
	return total
}

// Publish queues event for every connection of userID. It never blocks:
// events are dropped when the queue is full or the hub has stopped.
func (h *Hub) Publish(userID uint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.LogError(err, "Failed to encode websocket event", "type", event.Type)
		return
	}

	h.deliver(delivery{userID: userID, payload: payload})
}

func (h *Hub) deliver(d delivery) {
	select {
	case h.publish <- d:
	case <-h.done:
	default:
		h.logger.Warn("Dropping websocket event, hub is saturated", "user_id", d.userID)
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
