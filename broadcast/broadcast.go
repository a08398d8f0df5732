// broadcast/broadcast.go
package broadcast

import (
	"fmt"

	"github.com/wfunc/drawserver/logger"
	"github.com/wfunc/drawserver/models"
	"github.com/wfunc/drawserver/network"
	"github.com/wfunc/drawserver/room"
	"github.com/wfunc/drawserver/session"
)

// BuildView derives one player's rendering state purely from a room
// snapshot. No side effects; the same snapshot and player always produce
// the same view.
func BuildView(r *models.Room, playerID string) models.PlayerView {
	view := models.PlayerView{
		RoomID:              r.ID,
		GameCode:            r.Code,
		Status:              r.Status,
		PlayerCount:         len(r.Players),
		CurrentSegmentIndex: r.CurrentSegment,
		SegmentCount:        r.SegmentCount,
	}

	isMember := r.HasPlayer(playerID)
	submitted := r.Submitted[playerID]

	switch r.Status {
	case models.StatusPlaying:
		view.CanDraw = isMember && !submitted
		view.IsWaitingForOthers = isMember && submitted

		if isMember {
			slot := r.Assignment[playerID]
			if !submitted && r.CurrentSegment > 0 && r.Peeks[slot] != "" {
				// Right after an advance the player sees only the peek
				// strip of the canvas they inherited.
				view.CanvasData = r.Peeks[slot]
			} else {
				view.CanvasData = r.Canvases[slot]
			}
		}

	case models.StatusCompleted:
		view.FinalArtworks = r.FinalArtworks
	}

	view.Message = statusMessage(r, playerID, view)
	return view
}

// statusMessage is a deterministic function of status, player count, and
// the view flags.
func statusMessage(r *models.Room, playerID string, view models.PlayerView) string {
	switch r.Status {
	case models.StatusWaiting:
		if len(r.Players) < models.MaxPlayers {
			return "Waiting for another player to join..."
		}
		return "Both players here, starting soon..."
	case models.StatusPlaying:
		if view.IsWaitingForOthers {
			return "Waiting for the other player to finish drawing..."
		}
		if view.CanDraw {
			return fmt.Sprintf("Draw segment %d of %d!",
				r.CurrentSegment+1, r.SegmentCount)
		}
		return "A game is in progress."
	case models.StatusCompleted:
		return "Game over! Here are the finished drawings."
	}
	return ""
}

// Dispatcher fans a committed room snapshot out to every connection bound
// to that room, each with its own personalized view. Sends are
// best-effort: one dead connection never blocks the others.
type Dispatcher struct {
	sessions *session.Manager
}

func NewDispatcher(sessions *session.Manager) *Dispatcher {
	return &Dispatcher{sessions: sessions}
}

var _ room.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) RoomUpdated(r *models.Room, event room.Event) {
	for _, sess := range d.sessions.GetByRoom(r.ID) {
		view := BuildView(r, sess.PlayerID())
		msg := network.ServerMessage{
			Type:       event.Type,
			PlayerView: &view,
			PlayerID:   event.PlayerID,
		}
		go func(target *session.Session) {
			if err := target.Send(msg); err != nil {
				logger.Log.Warnf("Broadcast to session %s failed: %v", target.ID, err)
			}
		}(sess)
	}
}

func (d *Dispatcher) RoomDeleted(roomID string, event room.Event) {
	for _, sess := range d.sessions.GetByRoom(roomID) {
		msg := network.ServerMessage{
			Type:     event.Type,
			PlayerID: event.PlayerID,
		}
		go func(target *session.Session) {
			if err := target.Send(msg); err != nil {
				logger.Log.Warnf("Broadcast to session %s failed: %v", target.ID, err)
			}
		}(sess)
		d.sessions.Unbind(sess.ID)
	}
}
