package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is a share-activity notification pushed to the owning household's
// dashboard: a packet was issued, viewed, or revoked. Events never carry
// the access token.
type Event struct {
	Kind      string         `json:"kind"`
	PacketID  string         `json:"packet_id"`
	Recipient string         `json:"recipient,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

const (
	EventIssued  = "share_issued"
	EventViewed  = "share_viewed"
	EventRevoked = "share_revoked"
)

// Hub maintains the set of active WebSocket clients, each bound to a
// household, and fans events out only to that household's connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]int64 // client -> household id
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]int64),
		logger:  logger,
	}
}

// Register adds a client for a household.
func (h *Hub) Register(c *Client, householdID int64) {
	h.mu.Lock()
	h.clients[c] = householdID
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every client of the given household.
func (h *Hub) Broadcast(householdID int64, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c, hid := range h.clients {
		if hid != householdID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the event rather than block
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
