// services/artwork_service.go
package services

import (
	"fmt"

	"github.com/wfunc/drawserver/models"
	"github.com/wfunc/drawserver/persistence"
)

// ArtworkService persists and serves the final composites of finished
// games. Nothing else about a game survives room deletion.
type ArtworkService struct {
	db persistence.Database
}

func NewArtworkService(db persistence.Database) *ArtworkService {
	return &ArtworkService{db: db}
}

// SaveFinals stores one artwork record per canvas slot of a completed room.
func (s *ArtworkService) SaveFinals(room *models.Room) error {
	if room.Status != models.StatusCompleted {
		return fmt.Errorf("room %s is not completed", room.ID)
	}
	if len(room.FinalArtworks) != 2 {
		return fmt.Errorf("room %s has %d final artworks, want 2",
			room.ID, len(room.FinalArtworks))
	}

	players := make([]string, len(room.Players))
	copy(players, room.Players)

	records := make([]models.ArtworkRecord, 0, len(room.FinalArtworks))
	for slot, image := range room.FinalArtworks {
		records = append(records, models.ArtworkRecord{
			RoomID:   room.ID,
			RoomCode: room.Code,
			Slot:     slot,
			Image:    image,
			Players:  players,
		})
	}
	return s.db.SaveArtworks(records)
}

// GetByCode returns the stored composites for a finished game's code.
func (s *ArtworkService) GetByCode(code string) ([]models.ArtworkRecord, error) {
	return s.db.LoadArtworks(code)
}
