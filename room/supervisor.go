// room/supervisor.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/drawserver/timer"
)

// Supervisor owns the grace-period timers, one per (room, player). Arming
// replaces any pending timer for the same pair; cancel is idempotent.
type Supervisor struct {
	timers *timer.Manager
	mutex  sync.Mutex
	armed  map[string]int64 // roomID|playerID -> timer task id
}

func NewSupervisor(timers *timer.Manager) *Supervisor {
	return &Supervisor{
		timers: timers,
		armed:  make(map[string]int64),
	}
}

func superviseKey(roomID, playerID string) string {
	return roomID + "|" + playerID
}

// Arm schedules expire after delay. The callback runs on its own goroutine.
func (s *Supervisor) Arm(roomID, playerID string, delay time.Duration, expire func()) {
	key := superviseKey(roomID, playerID)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if id, exists := s.armed[key]; exists {
		s.timers.Cancel(id)
	}
	s.armed[key] = s.timers.Schedule(delay, 0, func() {
		s.clear(key)
		expire()
	})
}

// Cancel disarms the pending timer for a player. Reports whether a timer
// was actually pending, so a reconnect races cleanly with expiry.
func (s *Supervisor) Cancel(roomID, playerID string) bool {
	key := superviseKey(roomID, playerID)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id, exists := s.armed[key]
	if !exists {
		return false
	}
	delete(s.armed, key)
	return s.timers.Cancel(id)
}

// CancelRoom disarms every timer belonging to a room.
func (s *Supervisor) CancelRoom(roomID string) {
	prefix := roomID + "|"

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, id := range s.armed {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			s.timers.Cancel(id)
			delete(s.armed, key)
		}
	}
}

func (s *Supervisor) clear(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.armed, key)
}
