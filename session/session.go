// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/drawserver/network"
)

// Session is the explicit connection record: one live transport connection
// bound to at most one player identity and one room. Domain state never
// lives on the socket itself.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	mutex    sync.RWMutex
	playerID string
	roomID   string
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) PlayerID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID
}

func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) Send(v interface{}) error {
	s.LastActive = time.Now()
	return s.Conn.Send(v)
}

func (s *Session) Touch() {
	s.LastActive = time.Now()
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the connection registry: session id -> session, plus a room
// index so a broadcast never scans unrelated connections. Rebuilt per
// process, never persisted.
type Manager struct {
	sessions map[string]*Session
	byRoom   map[string]map[string]*Session // roomID -> sessionID -> session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byRoom:   make(map[string]map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove drops the session and its room index entry.
func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return
	}
	m.unbindLocked(session)
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// Bind attaches a player identity and room to the session and indexes it
// under the room. A session bound to another room is unbound first.
func (m *Manager) Bind(sessionID, playerID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return
	}
	m.unbindLocked(session)

	session.mutex.Lock()
	session.playerID = playerID
	session.roomID = roomID
	session.mutex.Unlock()

	if roomID != "" {
		if _, ok := m.byRoom[roomID]; !ok {
			m.byRoom[roomID] = make(map[string]*Session)
		}
		m.byRoom[roomID][sessionID] = session
	}
}

// Unbind clears the session's player/room binding.
func (m *Manager) Unbind(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if session, exists := m.sessions[sessionID]; exists {
		m.unbindLocked(session)
	}
}

func (m *Manager) unbindLocked(session *Session) {
	session.mutex.Lock()
	roomID := session.roomID
	session.playerID = ""
	session.roomID = ""
	session.mutex.Unlock()

	if roomID == "" {
		return
	}
	if set, ok := m.byRoom[roomID]; ok {
		delete(set, session.ID)
		if len(set) == 0 {
			delete(m.byRoom, roomID)
		}
	}
}

// GetByRoom returns a snapshot of the sessions bound to a room.
func (m *Manager) GetByRoom(roomID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	set, ok := m.byRoom[roomID]
	if !ok {
		return nil
	}
	result := make([]*Session, 0, len(set))
	for _, session := range set {
		result = append(result, session)
	}
	return result
}

// GetByPlayer returns the session currently bound to a player in a room.
func (m *Manager) GetByPlayer(roomID, playerID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, session := range m.byRoom[roomID] {
		session.mutex.RLock()
		match := session.playerID == playerID
		session.mutex.RUnlock()
		if match {
			return session, true
		}
	}
	return nil, false
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// RoomCount returns the number of rooms with at least one bound session.
func (m *Manager) RoomCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.byRoom)
}
