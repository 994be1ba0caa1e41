package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is the subset of *websocket.Conn the hub needs; tests substitute a
// fake.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Session is one live push-channel connection bound to a user. It is owned
// by the hub and never persisted.
type Session struct {
	ID       string
	UserID   int64
	JoinedAt time.Time

	mu   sync.Mutex
	conn Conn
}

func NewSession(userID int64, conn Conn) *Session {
	return &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		JoinedAt: time.Now(),
		conn:     conn,
	}
}

// Send writes one JSON frame. The per-session lock keeps concurrent
// fan-outs from interleaving frames on the same connection.
func (s *Session) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) Close() error {
	return s.conn.Close()
}

// Hub is the session registry: it maps each user to the set of their live
// sessions and is the only in-memory shared mutable structure in the
// server. A user may hold several sessions at once (multiple devices/tabs).
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[int64]map[*Session]struct{}),
	}
}

// Register adds a session for its user and reports whether it was the
// user's first live session. Registering the same session twice is a no-op
// that reports false.
func (h *Hub) Register(s *Session) (first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sessions[s.UserID]
	if set == nil {
		set = make(map[*Session]struct{})
		h.sessions[s.UserID] = set
	}
	if _, ok := set[s]; ok {
		return false
	}
	set[s] = struct{}{}
	return len(set) == 1
}

// Unregister removes a session and reports whether it was the user's last
// one. Removing an unknown session reports false.
func (h *Hub) Unregister(s *Session) (last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[s.UserID]
	if !ok {
		return false
	}
	if _, ok := set[s]; !ok {
		return false
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.sessions, s.UserID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live session.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

// SessionsFor returns a snapshot of the user's live sessions.
func (h *Hub) SessionsFor(userID int64) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.sessions[userID]
	res := make([]*Session, 0, len(set))
	for s := range set {
		res = append(res, s)
	}
	return res
}

// SendToUsers sends the payload to every live session of the given users.
// Failed sends close the session and are otherwise dropped: the session's
// own read loop notices the closed connection and unregisters it, which is
// what drives the presence transition.
func (h *Hub) SendToUsers(userIDs []int64, payload any) {
	h.mu.RLock()
	var targets []*Session
	for _, uid := range userIDs {
		for s := range h.sessions[uid] {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(payload); err != nil {
			s.Close()
		}
	}
}

// BroadcastAll sends the payload to every connected session.
func (h *Hub) BroadcastAll(payload any) {
	h.mu.RLock()
	var targets []*Session
	for _, set := range h.sessions {
		for s := range set {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(payload); err != nil {
			s.Close()
		}
	}
}

// CloseUser force-closes every session of the user. Unregistration happens
// in each connection's read loop.
func (h *Hub) CloseUser(userID int64) {
	for _, s := range h.SessionsFor(userID) {
		s.Close()
	}
}
