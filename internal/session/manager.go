package session

import (
	"sync"
	"time"
)

// Manager serializes event handling per sender and remembers which reply ids
// were last offered to each sender. Nothing here survives a restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*senderSession
	now      func() time.Time
}

type senderSession struct {
	mu       sync.Mutex
	lastUsed time.Time
	offered  map[string]struct{}
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*senderSession),
		now:      time.Now,
	}
}

func (m *Manager) get(phone string) *senderSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[phone]
	if !ok {
		s = &senderSession{}
		m.sessions[phone] = s
	}
	return s
}

// WithLock executes fn while holding the per-phone mutex.
// Concurrent events from the same phone are serialized; different phones run in parallel.
func (m *Manager) WithLock(phone string, fn func(*Session) error) error {
	s := m.get(phone)

	s.mu.Lock()
	defer s.mu.Unlock()

	m.mu.Lock()
	s.lastUsed = m.now()
	m.mu.Unlock()

	return fn(&Session{s: s})
}

// Cleanup removes sessions not used within maxAge.
func (m *Manager) Cleanup(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for phone, s := range m.sessions {
		if now.Sub(s.lastUsed) > maxAge {
			delete(m.sessions, phone)
			removed++
		}
	}
	return removed
}

// Len reports how many senders are tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Session is the view of one sender's record, valid only inside WithLock.
type Session struct {
	s *senderSession
}

// Offer replaces the set of reply ids the sender was last shown.
func (s *Session) Offer(ids ...string) {
	offered := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		offered[id] = struct{}{}
	}
	s.s.offered = offered
}

// Offered reports whether id was among the last offered reply ids.
// A sender with no recorded prompt has been offered nothing.
func (s *Session) Offered(id string) bool {
	_, ok := s.s.offered[id]
	return ok
}
