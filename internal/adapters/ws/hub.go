package ws

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/chatter/internal/chat"
	"github.com/dkeye/chatter/internal/presence"
	"github.com/rs/zerolog/log"
)

// Sender is the outbound half of a connection the hub delivers to.
type Sender interface {
	TrySend(data []byte) error
}

// envelope is the wire frame in both directions: a named event plus its
// payload, preserving the payload shape untouched.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub routes chat events to live connections. Room and system-wide target
// sets are resolved from the presence store at dispatch time, never from a
// cached list. A connection that vanished between lookup and delivery is a
// benign race with disconnect: logged, never fatal.
type Hub struct {
	store *presence.Store

	mu    sync.RWMutex
	conns map[presence.ConnID]Sender
}

func NewHub(store *presence.Store) *Hub {
	return &Hub{store: store, conns: make(map[presence.ConnID]Sender)}
}

func (h *Hub) Register(id presence.ConnID, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = s
}

func (h *Hub) Unregister(id presence.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Dispatch delivers each event to its target set, in order.
func (h *Hub) Dispatch(events []chat.Event) {
	for _, ev := range events {
		data, err := json.Marshal(envelope{Event: ev.Name, Payload: ev.Payload})
		if err != nil {
			log.Error().Str("module", "ws.hub").Str("event", ev.Name).Err(err).Msg("marshal event")
			continue
		}
		switch ev.Scope {
		case chat.ScopeConn:
			h.deliver(ev.Conn, ev.Name, data)
		case chat.ScopeRoom:
			for _, id := range h.store.ConnsInRoom(ev.Room) {
				if id == ev.Exclude {
					continue
				}
				h.deliver(id, ev.Name, data)
			}
		case chat.ScopeAll:
			for _, id := range h.store.AllConns() {
				h.deliver(id, ev.Name, data)
			}
		}
	}
}

func (h *Hub) deliver(id presence.ConnID, event string, data []byte) {
	h.mu.RLock()
	s, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "ws.hub").Str("conn", string(id)).Str("event", event).Msg("routing miss, connection gone")
		return
	}
	if err := s.TrySend(data); err != nil {
		log.Warn().Str("module", "ws.hub").Str("conn", string(id)).Str("event", event).Err(err).Msg("send failed")
	}
}
