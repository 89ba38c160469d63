package sandbox

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/mototaxi/internal/models"
)

type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) send(t models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(t)
}

// Hub pushes trip snapshots to subscribed websocket clients, keyed by trip
// id. Clients that error out are dropped; they fall back to polling.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string][]*wsSession // trip id -> subscribers
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string][]*wsSession)}
}

func (h *Hub) Add(tripID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[tripID] = append(h.sessions[tripID], &wsSession{conn: conn})
}

func (h *Hub) Broadcast(t models.Trip) {
	h.mu.RLock()
	subs := append([]*wsSession(nil), h.sessions[t.ID]...)
	h.mu.RUnlock()

	var dead []*wsSession
	for _, s := range subs {
		if err := s.send(t); err != nil {
			dead = append(dead, s)
		}
	}
	if len(dead) == 0 {
		return
	}
	h.mu.Lock()
	kept := h.sessions[t.ID][:0]
	for _, s := range h.sessions[t.ID] {
		alive := true
		for _, d := range dead {
			if s == d {
				alive = false
				_ = s.conn.Close()
				break
			}
		}
		if alive {
			kept = append(kept, s)
		}
	}
	h.sessions[t.ID] = kept
	h.mu.Unlock()
}
