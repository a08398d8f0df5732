// room/interfaces.go
package room

import (
	"github.com/wfunc/drawserver/models"
)

// Event names what just happened to a room so the dispatcher can label
// the outbound frames. PlayerID is the member the event is about, when
// there is one.
type Event struct {
	Type     string
	PlayerID string
}

// Notifier receives the committed room snapshot after every transition.
// Defined here, not in broadcast, to keep the engine free of transport
// imports.
type Notifier interface {
	RoomUpdated(room *models.Room, event Event)
	RoomDeleted(roomID string, event Event)
}
