package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed to chat subscribers
const (
	EventMessageCreated     = "message.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event
func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: data}, nil
}

// chatEvent routes an event to one chat room
type chatEvent struct {
	ChatID uint
	Event  Event
}

// Hub maintains the set of active clients per order chat and broadcasts events to them
type Hub struct {
	// Registered clients by chat ID
	rooms map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *chatEvent

	// done is closed when Run returns so clients never block on a stopped hub
	done chan struct{}

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *chatEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// It should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.chatID] == nil {
				h.rooms[client.chatID] = make(map[*Client]bool)
			}
			h.rooms[client.chatID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Error("Failed to encode realtime event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.ChatID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than block the hub
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToChat sends an event to every client subscribed to chatID.
// Events are dropped when the hub's queue is full.
func (h *Hub) BroadcastToChat(chatID uint, event Event) {
	select {
	case h.broadcast <- &chatEvent{ChatID: chatID, Event: event}:
	default:
		h.logger.Warn("Realtime queue full, dropping event",
			zap.Uint("chat_id", chatID), zap.String("type", event.Type))
	}
}

// Done is closed once the hub has stopped
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Subscribers returns the number of clients connected to chatID
func (h *Hub) Subscribers(chatID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.chatID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.chatID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}
