// models/view.go
package models

// PlayerView is the personalized projection of a room snapshot for one
// player. It is computed purely from the room document plus the player id
// and carries everything a client needs to render without further queries.
type PlayerView struct {
	Message             string     `json:"message"`
	RoomID              string     `json:"roomId"`
	GameCode            string     `json:"gameCode"`
	Status              RoomStatus `json:"status"`
	PlayerCount         int        `json:"playerCount"`
	CurrentSegmentIndex int        `json:"currentSegmentIndex"`
	SegmentCount        int        `json:"segmentCount"`
	CanDraw             bool       `json:"canDraw"`
	IsWaitingForOthers  bool       `json:"isWaitingForOthers"`
	CanvasData          string     `json:"canvasData"`
	FinalArtworks       []string   `json:"finalArtworks,omitempty"`
}
