// models/models.go
package models

import (
	"time"
)

// RoomStatus is the lifecycle state of a game room.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusPlaying   RoomStatus = "playing"
	StatusCompleted RoomStatus = "completed"
)

// ConnectionStatus is the per-player connection sub-state.
type ConnectionStatus string

const (
	ConnStatusConnected    ConnectionStatus = "connected"
	ConnStatusDisconnected ConnectionStatus = "disconnected"
)

// MaxPlayers is fixed for exquisite corpse: two drawers per room.
const MaxPlayers = 2

// PlayerRecord holds per-player bookkeeping inside a room document.
type PlayerRecord struct {
	DisplayName       string           `json:"display_name"`
	Status            ConnectionStatus `json:"status"`
	ReconnectAttempts int              `json:"reconnect_attempts"`
}

// SegmentEntry is one player's submission for one segment. Slot records
// which canvas the player was assigned when they submitted, so the final
// composite can follow each canvas across assignment swaps.
type SegmentEntry struct {
	Image string `json:"image"` // base64 PNG data URL
	Slot  int    `json:"slot"`
}

// Room is the authoritative game document. One row per room in the store;
// every gameplay operation loads it, mutates it, and writes it back under
// the per-room lock.
type Room struct {
	ID     string     `json:"id"`
	Code   string     `json:"code"`
	Status RoomStatus `json:"status"`

	// Players preserves join order; Records carries per-player state.
	Players []string                 `json:"players"`
	Records map[string]*PlayerRecord `json:"records"`

	SegmentCount   int             `json:"segment_count"`
	CurrentSegment int             `json:"current_segment"`
	Submitted      map[string]bool `json:"submitted"`

	// Assignment maps playerID -> canvas slot (0 or 1) while playing.
	Assignment map[string]int `json:"assignment"`

	// Canvases holds the two live drawing surfaces; Peeks holds the crop
	// of each slot computed at the last advance, blank before segment 1.
	Canvases [2]string `json:"canvases"`
	Peeks    [2]string `json:"peeks"`

	// History[segment][playerID] = that player's submission.
	History []map[string]SegmentEntry `json:"history"`

	// FinalArtworks is populated only when Status == StatusCompleted.
	FinalArtworks []string `json:"final_artworks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version supports optimistic-concurrency writes in the store.
	Version int64 `json:"version"`
}

// HasPlayer reports whether playerID is a member of the room.
func (r *Room) HasPlayer(playerID string) bool {
	for _, id := range r.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

// ConnectedCount returns the number of members currently connected.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Status == ConnStatusConnected {
			n++
		}
	}
	return n
}

// AllSubmitted reports whether every member has submitted the current segment.
func (r *Room) AllSubmitted() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, id := range r.Players {
		if !r.Submitted[id] {
			return false
		}
	}
	return true
}

// OtherPlayer returns the member that is not playerID, if any.
func (r *Room) OtherPlayer(playerID string) (string, bool) {
	for _, id := range r.Players {
		if id != playerID {
			return id, true
		}
	}
	return "", false
}

// ArtworkRecord is the persisted final composite of a finished game.
type ArtworkRecord struct {
	RoomID    string    `json:"room_id"`
	RoomCode  string    `json:"room_code"`
	Slot      int       `json:"slot"`
	Image     string    `json:"image"`
	Players   []string  `json:"players"`
	CreatedAt time.Time `json:"created_at"`
}
