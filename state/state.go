package state

import (
	"errors"
	"sync"

	"github.com/wfunc/drawserver/models"
)

// ErrTransitionNotAllowed is returned when a status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine validates room status transitions against a fixed table. The
// room engine owns the mutation itself; the machine only guards legality.
type Machine struct {
	transitions map[models.RoomStatus]map[models.RoomStatus]bool
	mutex       sync.RWMutex
}

// NewMachine returns a machine preloaded with the room lifecycle:
//
//	waiting -> playing     second player joins
//	playing -> completed   final segment advanced
//	playing -> waiting     a member was permanently removed mid-game
func NewMachine() *Machine {
	m := &Machine{
		transitions: make(map[models.RoomStatus]map[models.RoomStatus]bool),
	}
	m.Allow(models.StatusWaiting, models.StatusPlaying)
	m.Allow(models.StatusPlaying, models.StatusCompleted)
	m.Allow(models.StatusPlaying, models.StatusWaiting)
	return m
}

// Allow registers a legal transition.
func (m *Machine) Allow(from, to models.RoomStatus) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[models.RoomStatus]bool)
	}
	m.transitions[from][to] = true
}

// CanTransition reports whether from -> to is legal. Staying in the same
// status is always legal.
func (m *Machine) CanTransition(from, to models.RoomStatus) bool {
	if from == to {
		return true
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.transitions[from][to]
}

// Apply sets room.Status to the target if the transition is legal.
func (m *Machine) Apply(room *models.Room, to models.RoomStatus) error {
	if !m.CanTransition(room.Status, to) {
		return ErrTransitionNotAllowed
	}
	room.Status = to
	return nil
}

// Terminal reports whether a status admits no gameplay operations.
func Terminal(status models.RoomStatus) bool {
	return status == models.StatusCompleted
}
