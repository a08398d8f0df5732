// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/drawserver/models"
)

// Database is the room store: one document per game room, the single
// source of truth shared across server processes. SaveRoom performs a
// version-checked write; a stale snapshot fails with ErrVersionConflict
// and the caller retries its whole transaction.
type Database interface {
	SaveRoom(room *models.Room) error
	LoadRoom(roomID string) (*models.Room, error)
	LoadRoomByCode(code string) (*models.Room, error)
	DeleteRoom(roomID string) error
	CodeExists(code string) (bool, error)
	SaveArtworks(records []models.ArtworkRecord) error
	LoadArtworks(roomCode string) ([]models.ArtworkRecord, error)
	Ping() error
	Close() error
}

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("room version conflict")
	ErrDuplicateCode   = errors.New("room code already exists")
)
