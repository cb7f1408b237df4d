package session

import (
	"sync"

	"github.com/RoadRescue/RoadRescue/internal/booking"
	"github.com/RoadRescue/RoadRescue/internal/common/logger"
)

// Manager 按用户维护会话，一个用户一个。
type Manager struct {
	lc   Lifecycle
	feed booking.EventSource
	log  logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(lc Lifecycle, feed booking.EventSource, log logger.Logger) *Manager {
	return &Manager{
		lc:       lc,
		feed:     feed,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Get 取用户会话，没有则新建。
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := NewSession(userID, m.lc, m.feed, m.log)
	m.sessions[userID] = s
	return s
}

// Release 关闭并移除用户会话。
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close 关闭所有会话。
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
