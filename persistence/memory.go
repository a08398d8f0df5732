// persistence/memory.go
package persistence

import (
	"encoding/json"
	"sync"

	"github.com/wfunc/drawserver/models"
)

// Memory is an in-process Database used by tests and single-node dev runs.
// It applies the same version-check semantics as the SQL stores.
type Memory struct {
	rooms    map[string]*models.Room           // roomID -> doc
	byCode   map[string]string                 // code -> roomID
	artworks map[string][]models.ArtworkRecord // roomCode -> records
	mutex    sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]*models.Room),
		byCode:   make(map[string]string),
		artworks: make(map[string][]models.ArtworkRecord),
	}
}

// cloneRoom deep-copies a document so callers never share maps with the store.
func cloneRoom(room *models.Room) *models.Room {
	raw, _ := json.Marshal(room)
	clone := &models.Room{}
	_ = json.Unmarshal(raw, clone)
	return clone
}

func (m *Memory) SaveRoom(room *models.Room) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.rooms[room.ID]
	if !exists {
		if _, taken := m.byCode[room.Code]; taken {
			return ErrDuplicateCode
		}
		room.Version = 1
		m.rooms[room.ID] = cloneRoom(room)
		m.byCode[room.Code] = room.ID
		return nil
	}

	if existing.Version != room.Version {
		return ErrVersionConflict
	}
	room.Version++
	m.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (m *Memory) LoadRoom(roomID string) (*models.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRecordNotFound
	}
	return cloneRoom(room), nil
}

func (m *Memory) LoadRoomByCode(code string) (*models.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	roomID, exists := m.byCode[code]
	if !exists {
		return nil, ErrRecordNotFound
	}
	return cloneRoom(m.rooms[roomID]), nil
}

func (m *Memory) DeleteRoom(roomID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return ErrRecordNotFound
	}
	delete(m.byCode, room.Code)
	delete(m.rooms, roomID)
	return nil
}

func (m *Memory) CodeExists(code string) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, exists := m.byCode[code]
	return exists, nil
}

func (m *Memory) SaveArtworks(records []models.ArtworkRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, record := range records {
		m.artworks[record.RoomCode] = append(m.artworks[record.RoomCode], record)
	}
	return nil
}

func (m *Memory) LoadArtworks(roomCode string) ([]models.ArtworkRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	records := m.artworks[roomCode]
	result := make([]models.ArtworkRecord, len(records))
	copy(result, records)
	return result, nil
}

func (m *Memory) Ping() error { return nil }

func (m *Memory) Close() error { return nil }
