package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/loopline-app/loopline/backend/pkg/logger"
)

// Event is one frame pushed to a connected client.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Pusher is the delivery interface services depend on. Delivery is
// best-effort: pushing to a user with no live connections is a no-op, and
// a failed push never aborts the operation that triggered it.
type Pusher interface {
	EmitToUser(userID uint, event string, payload interface{})
}

// Session is one live connection bound to a user room. Frames are consumed
// from Events by the transport handler that owns the connection.
type Session struct {
	ID     string
	UserID uint
	send   chan Event

	mu     sync.Mutex
	closed bool
}

// Events returns the channel the transport handler drains into the socket.
func (s *Session) Events() <-chan Event {
	return s.send
}

func (s *Session) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- ev:
	default:
		// drop if subscriber is slow
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Hub keeps the per-user room table of live sessions. It is constructed
// once at process start and handed to every dependent service; there is no
// package-level instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Session]struct{}
	log   *logrus.Logger
}

// New constructs a Hub.
func New() *Hub {
	return &Hub{
		rooms: make(map[uint]map[*Session]struct{}),
		log:   logger.Log,
	}
}

// Join binds a new connection to the user's room and returns its session.
// A user may hold any number of simultaneous sessions; every one of them
// receives subsequent emits.
func (h *Hub) Join(userID uint) *Session {
	s := &Session{
		ID:     uuid.New().String(),
		UserID: userID,
		send:   make(chan Event, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*Session]struct{})
		h.rooms[userID] = room
	}
	room[s] = struct{}{}
	return s
}

// Disconnect unbinds a session from its room and closes it. Idempotent.
func (h *Hub) Disconnect(s *Session) {
	if s == nil {
		return
	}

	h.mu.Lock()
	if room, ok := h.rooms[s.UserID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, s.UserID)
		}
	}
	h.mu.Unlock()

	s.close()
}

// EmitToUser delivers an event to every live session in the user's room.
// No-op when the room is empty; slow sessions are skipped rather than
// blocking the caller.
func (h *Hub) EmitToUser(userID uint, event string, payload interface{}) {
	h.mu.RLock()
	room, ok := h.rooms[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	sessions := make([]*Session, 0, len(room))
	for s := range room {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.deliver(Event{Name: event, Payload: payload})
	}
}

// ConnectionCount reports the number of live sessions for a user.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Close tears down every session. Called once at process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uint]map[*Session]struct{})
	h.mu.Unlock()

	n := 0
	for _, room := range rooms {
		for s := range room {
			s.close()
			n++
		}
	}
	if n > 0 {
		h.log.WithField("sessions", n).Info("hub closed")
	}
}

type nopPusher struct{}

func (nopPusher) EmitToUser(uint, string, interface{}) {}

// Nop returns a Pusher that discards everything. Callers running without a
// live transport (batch jobs, tests) use it so dependent code never has to
// null-check.
func Nop() Pusher {
	return nopPusher{}
}
