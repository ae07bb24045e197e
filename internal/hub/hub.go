package hub

import (
	"encoding/json"
	"sync"

	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

// Hub owns the room -> subscriber mapping. Membership mutations and
// broadcasts all serialize on the hub mutex: a broadcast reaches exactly
// the subscribers present at the moment it is issued, never a session
// that joins afterwards, and every subscriber observes a room's messages
// in the same order. Handlers never touch the maps directly.
type Hub struct {
	clients    map[string]*Client            // connection ID -> client
	rooms      map[string]map[string]*Client // room ID -> connection ID -> client
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	config     config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, subscribers := range h.rooms {
					delete(subscribers, client.ID)
					if len(subscribers) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client unregistered")
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom subscribes a client to a room. Many clients may subscribe to
// the same room; a client is only ever in one room at a time, which the
// coordinator enforces by leaving the previous room first.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.rooms[roomID]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.rooms, roomID)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
}

// BroadcastToRoom fans an event out to every subscriber of a room. Pass a
// connection ID as exclude to skip one subscriber (join notices go to
// everyone but the joiner), or "" to reach all of them. The fan-out runs
// under the membership lock, so the recipient set is exactly the room's
// subscribers at call time.
func (h *Hub) BroadcastToRoom(roomID string, event interface{}, exclude string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	for connID, client := range subscribers {
		if connID == exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Slow consumer: drop the connection rather than stall
			// the whole room.
			go h.removeClient(client)
		}
	}
	return nil
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.rooms[roomID]; ok {
		return len(subscribers)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
