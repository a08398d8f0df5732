// room/engine.go
package room

import (
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/drawserver/canvas"
	"github.com/wfunc/drawserver/config"
	"github.com/wfunc/drawserver/logger"
	"github.com/wfunc/drawserver/models"
	"github.com/wfunc/drawserver/network"
	"github.com/wfunc/drawserver/persistence"
	"github.com/wfunc/drawserver/services"
	"github.com/wfunc/drawserver/state"
	"github.com/wfunc/drawserver/timer"
)

// saveRetries bounds version-conflict retries of a room transaction.
const saveRetries = 3

// Engine applies every gameplay transition: join, submit, advance,
// disconnect, reconnect, clear. Operations on one room are serialized by
// a keyed lock, and every write is version-checked against the store, so
// two concurrent submissions can never both miss the advance.
type Engine struct {
	db         persistence.Database
	compositor canvas.Compositor
	machine    *state.Machine
	notifier   Notifier
	supervisor *Supervisor
	artworks   *services.ArtworkService
	cfg        config.GameConfig
	locks      *keyedLocks
}

func NewEngine(db persistence.Database, compositor canvas.Compositor,
	notifier Notifier, timers *timer.Manager, cfg config.GameConfig) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		db:         db,
		compositor: compositor,
		machine:    state.NewMachine(),
		notifier:   notifier,
		supervisor: NewSupervisor(timers),
		artworks:   services.NewArtworkService(db),
		cfg:        cfg,
		locks:      newKeyedLocks(),
	}
}

// Supervisor exposes the grace-period supervisor, mainly for tests.
func (e *Engine) Supervisor() *Supervisor {
	return e.supervisor
}

func (e *Engine) newRoom(code string) *models.Room {
	now := time.Now()
	return &models.Room{
		ID:             uuid.New().String(),
		Code:           code,
		Status:         models.StatusWaiting,
		Players:        []string{},
		Records:        make(map[string]*models.PlayerRecord),
		SegmentCount:   e.cfg.SegmentCount,
		CurrentSegment: 0,
		Submitted:      make(map[string]bool),
		Assignment:     make(map[string]int),
		History:        newHistory(e.cfg.SegmentCount),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newHistory(segments int) []map[string]models.SegmentEntry {
	history := make([]map[string]models.SegmentEntry, segments)
	for i := range history {
		history[i] = make(map[string]models.SegmentEntry)
	}
	return history
}

// withRoom runs fn against a fresh snapshot under the room lock and
// persists the result. On a version conflict the whole transaction is
// re-run against a reloaded snapshot.
func (e *Engine) withRoom(roomID string, fn func(*models.Room) error) (*models.Room, error) {
	e.locks.lock(roomID)
	defer e.locks.unlock(roomID)

	for attempt := 0; attempt < saveRetries; attempt++ {
		room, err := e.db.LoadRoom(roomID)
		if err == persistence.ErrRecordNotFound {
			return nil, ErrRoomNotFound
		}
		if err != nil {
			return nil, wrapStore("load room", err)
		}

		if err := fn(room); err != nil {
			return nil, err
		}

		room.UpdatedAt = time.Now()
		err = e.db.SaveRoom(room)
		if err == nil {
			return room, nil
		}
		if err != persistence.ErrVersionConflict {
			return nil, wrapStore("save room", err)
		}
		logger.Log.Warnf("Room %s transaction hit a version conflict, retrying", roomID)
	}
	return nil, retryableError(persistence.ErrVersionConflict)
}

// CreateRoom allocates a room with a fresh unique code. When playerID is
// empty (the HTTP surface creates rooms before any socket exists) the
// room starts with no members.
func (e *Engine) CreateRoom(playerID, displayName string) (*models.Room, error) {
	for attempt := 0; attempt < saveRetries; attempt++ {
		code, err := GenerateCode(e.db)
		if err != nil {
			return nil, err
		}

		room := e.newRoom(code)
		if playerID != "" {
			addMember(room, playerID, displayName)
		}

		err = e.db.SaveRoom(room)
		if err == nil {
			logger.Log.Infof("Room %s created with code %s", room.ID, room.Code)
			return room, nil
		}
		if err != persistence.ErrDuplicateCode {
			return nil, wrapStore("create room", err)
		}
	}
	return nil, newGameError(KindRetryable, "could not allocate a unique room code")
}

func addMember(room *models.Room, playerID, displayName string) {
	room.Players = append(room.Players, playerID)
	room.Records[playerID] = &models.PlayerRecord{
		DisplayName: displayName,
		Status:      models.ConnStatusConnected,
	}
}

// Join adds a player to the room identified by code, creating the room if
// the code is unknown. A disconnected member joining again is treated as a
// reconnect. When membership reaches two the game starts.
func (e *Engine) Join(code, playerID, displayName string) (*models.Room, Event, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, Event{}, err
	}

	existing, err := e.db.LoadRoomByCode(code)
	if err == persistence.ErrRecordNotFound {
		room, createErr := e.createWithCode(code, playerID, displayName)
		if createErr == nil {
			event := Event{Type: network.MsgPlayerJoined, PlayerID: playerID}
			e.notifier.RoomUpdated(room, event)
			return room, event, nil
		}
		if createErr != persistence.ErrDuplicateCode {
			return nil, Event{}, createErr
		}
		// Lost a create race; the room exists now, fall through to join it.
		existing, err = e.db.LoadRoomByCode(code)
	}
	if err != nil {
		return nil, Event{}, wrapStore("load room by code", err)
	}

	var event Event
	room, err := e.withRoom(existing.ID, func(room *models.Room) error {
		if room.HasPlayer(playerID) {
			record := room.Records[playerID]
			if record.Status == models.ConnStatusDisconnected {
				record.Status = models.ConnStatusConnected
				record.ReconnectAttempts = 0
				event = Event{Type: network.MsgPlayerReconnected, PlayerID: playerID}
				return nil
			}
			// Already a connected member; refresh only.
			event = Event{Type: network.MsgGameStateUpdate, PlayerID: playerID}
			return nil
		}

		if state.Terminal(room.Status) {
			return ErrGameCompleted
		}
		if len(room.Players) >= models.MaxPlayers {
			return ErrRoomFull
		}

		addMember(room, playerID, displayName)
		event = Event{Type: network.MsgPlayerJoined, PlayerID: playerID}

		if len(room.Players) == models.MaxPlayers {
			if err := e.startGame(room); err != nil {
				return err
			}
			event = Event{Type: network.MsgGameStarted, PlayerID: playerID}
		}
		return nil
	})
	if err != nil {
		return nil, Event{}, err
	}

	if event.Type == network.MsgPlayerReconnected {
		e.supervisor.Cancel(room.ID, playerID)
	}
	e.notifier.RoomUpdated(room, event)
	return room, event, nil
}

func (e *Engine) createWithCode(code, playerID, displayName string) (*models.Room, error) {
	room := e.newRoom(code)
	addMember(room, playerID, displayName)

	err := e.db.SaveRoom(room)
	if err == persistence.ErrDuplicateCode {
		return nil, err
	}
	if err != nil {
		return nil, wrapStore("create room", err)
	}
	logger.Log.Infof("Room %s created on join with code %s", room.ID, room.Code)
	return room, nil
}

// startGame moves a full room into playing: segment 0, canvas slots by
// join order, both canvases blank.
func (e *Engine) startGame(room *models.Room) error {
	if err := e.machine.Apply(room, models.StatusPlaying); err != nil {
		return newGameError(KindConflict, "room cannot start from its current state")
	}

	room.CurrentSegment = 0
	room.Submitted = make(map[string]bool)
	room.Assignment = make(map[string]int)
	for slot, playerID := range room.Players {
		room.Assignment[playerID] = slot
	}

	blank := e.compositor.Blank(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
	room.Canvases = [2]string{blank, blank}
	room.Peeks = [2]string{}
	room.History = newHistory(room.SegmentCount)
	room.FinalArtworks = nil

	logger.Log.Infof("Room %s started playing with players %v", room.ID, room.Players)
	return nil
}

// Submit records a player's drawing for the current segment. The second
// submission of a segment triggers the advance inside the same
// transaction, so it can never be missed or doubled.
func (e *Engine) Submit(roomID, playerID string, segmentIndex int, imageData string) (*models.Room, Event, error) {
	var event Event
	room, err := e.withRoom(roomID, func(room *models.Room) error {
		if !room.HasPlayer(playerID) {
			return ErrPlayerNotFound
		}
		switch room.Status {
		case models.StatusPlaying:
		case models.StatusCompleted:
			return ErrGameCompleted
		default:
			return ErrGameNotStarted
		}
		if segmentIndex != room.CurrentSegment {
			return ErrStaleSegment
		}
		if room.Submitted[playerID] {
			return ErrDuplicateSubmission
		}

		slot := room.Assignment[playerID]
		room.Canvases[slot] = imageData
		room.History[room.CurrentSegment][playerID] = models.SegmentEntry{
			Image: imageData,
			Slot:  slot,
		}
		room.Submitted[playerID] = true
		event = Event{Type: network.MsgPlayerSubmitted, PlayerID: playerID}

		if room.AllSubmitted() {
			e.advance(room, &event)
		}
		return nil
	})
	if err != nil {
		return nil, Event{}, err
	}

	if event.Type == network.MsgGameOver {
		e.persistArtworks(room)
	}
	e.notifier.RoomUpdated(room, event)
	return room, event, nil
}

// advance runs exactly once per segment, after every member submitted.
// On the final segment the room completes and the composites are built;
// otherwise canvases swap between the players and peeks are precomputed.
func (e *Engine) advance(room *models.Room, event *Event) {
	if room.CurrentSegment+1 >= room.SegmentCount {
		if err := e.machine.Apply(room, models.StatusCompleted); err != nil {
			logger.Log.Errorf("Room %s refused completion transition: %v", room.ID, err)
			return
		}
		room.CurrentSegment = room.SegmentCount
		room.Submitted = make(map[string]bool)
		room.FinalArtworks = e.composeFinals(room)
		*event = Event{Type: network.MsgGameOver}
		logger.Log.Infof("Room %s completed after %d segments", room.ID, room.SegmentCount)
		return
	}

	room.CurrentSegment++
	room.Submitted = make(map[string]bool)
	for playerID, slot := range room.Assignment {
		room.Assignment[playerID] = 1 - slot
	}
	for slot := range room.Peeks {
		room.Peeks[slot] = e.compositor.Peek(room.Canvases[slot], e.cfg.PeekHeight)
	}
	*event = Event{Type: network.MsgSegmentAdvanced}
	logger.Log.Infof("Room %s advanced to segment %d", room.ID, room.CurrentSegment)
}

// composeFinals stacks each canvas slot's submissions in segment order.
// Missing or broken images degrade to blank frames inside the compositor.
func (e *Engine) composeFinals(room *models.Room) []string {
	finals := make([]string, 2)
	for slot := 0; slot < 2; slot++ {
		images := make([]string, 0, room.SegmentCount)
		for segment := 0; segment < room.SegmentCount; segment++ {
			found := ""
			for _, entry := range room.History[segment] {
				if entry.Slot == slot {
					found = entry.Image
					break
				}
			}
			if found == "" {
				logger.Log.Warnf("Room %s missing slot %d image for segment %d",
					room.ID, slot, segment)
				found = e.compositor.Blank(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
			}
			images = append(images, found)
		}
		finals[slot] = e.compositor.Combine(images)
	}
	return finals
}

// persistArtworks stores the final composites. A storage failure here
// never blocks game completion.
func (e *Engine) persistArtworks(room *models.Room) {
	if err := e.artworks.SaveFinals(room); err != nil {
		logger.Log.Errorf("Room %s final artworks not persisted: %v", room.ID, err)
	}
}

// Disconnect marks a member disconnected and arms the grace timer. For a
// completed room it only updates bookkeeping and deletes the room once
// every member has disconnected.
func (e *Engine) Disconnect(roomID, playerID string) (*models.Room, error) {
	deleteRoom := false
	room, err := e.withRoom(roomID, func(room *models.Room) error {
		record, exists := room.Records[playerID]
		if !exists {
			return ErrPlayerNotFound
		}
		if record.Status == models.ConnStatusDisconnected {
			return nil
		}
		record.Status = models.ConnStatusDisconnected
		record.ReconnectAttempts++

		if room.Status == models.StatusCompleted && room.ConnectedCount() == 0 {
			deleteRoom = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deleteRoom {
		e.deleteRoom(room, Event{Type: network.MsgPlayerDisconnected, PlayerID: playerID})
		return room, nil
	}

	if room.Status != models.StatusCompleted {
		e.armGraceTimer(room.ID, playerID)
	}
	e.notifier.RoomUpdated(room, Event{Type: network.MsgPlayerDisconnected, PlayerID: playerID})
	return room, nil
}

func (e *Engine) armGraceTimer(roomID, playerID string) {
	e.supervisor.Arm(roomID, playerID, e.cfg.GracePeriod, func() {
		e.expireGrace(roomID, playerID)
	})
}

// Reconnect restores a disconnected member on a fresh connection. The
// caller rebinds the session and the dispatcher sends the full snapshot.
func (e *Engine) Reconnect(code, playerID string) (*models.Room, Event, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, Event{}, err
	}
	existing, err := e.db.LoadRoomByCode(code)
	if err == persistence.ErrRecordNotFound {
		return nil, Event{}, ErrRoomNotFound
	}
	if err != nil {
		return nil, Event{}, wrapStore("load room by code", err)
	}

	var event Event
	room, err := e.withRoom(existing.ID, func(room *models.Room) error {
		record, exists := room.Records[playerID]
		if !exists {
			return ErrPlayerNotFound
		}
		if record.Status == models.ConnStatusConnected {
			// Nothing to restore; resend state.
			event = Event{Type: network.MsgGameStateUpdate, PlayerID: playerID}
			return nil
		}
		record.Status = models.ConnStatusConnected
		record.ReconnectAttempts = 0
		event = Event{Type: network.MsgPlayerReconnected, PlayerID: playerID}
		return nil
	})
	if err != nil {
		return nil, Event{}, err
	}

	e.supervisor.Cancel(room.ID, playerID)
	e.notifier.RoomUpdated(room, event)
	return room, event, nil
}

// GetRoom loads a snapshot by id or, failing that, by code. Read-only.
func (e *Engine) GetRoom(roomID, code string) (*models.Room, error) {
	if roomID != "" {
		room, err := e.db.LoadRoom(roomID)
		if err == nil {
			return room, nil
		}
		if err != persistence.ErrRecordNotFound {
			return nil, wrapStore("load room", err)
		}
	}
	if code != "" {
		normalized, err := NormalizeCode(code)
		if err != nil {
			return nil, err
		}
		room, err := e.db.LoadRoomByCode(normalized)
		if err == persistence.ErrRecordNotFound {
			return nil, ErrRoomNotFound
		}
		if err != nil {
			return nil, wrapStore("load room by code", err)
		}
		return room, nil
	}
	return nil, ErrRoomNotFound
}

// ClearCanvas resets the current segment: submissions and history are
// dropped and both canvases return to their segment-start content.
func (e *Engine) ClearCanvas(roomID string) (*models.Room, error) {
	room, err := e.withRoom(roomID, func(room *models.Room) error {
		if room.Status != models.StatusPlaying {
			return ErrGameNotStarted
		}

		room.Submitted = make(map[string]bool)
		room.History[room.CurrentSegment] = make(map[string]models.SegmentEntry)

		blank := e.compositor.Blank(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
		for slot := 0; slot < 2; slot++ {
			room.Canvases[slot] = blank
			if room.CurrentSegment > 0 {
				for _, entry := range room.History[room.CurrentSegment-1] {
					if entry.Slot == slot {
						room.Canvases[slot] = entry.Image
						break
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notifier.RoomUpdated(room, Event{Type: network.MsgGameStateUpdate})
	return room, nil
}

// expireGrace fires when a grace timer elapses. Below the attempt budget
// the timer re-arms; at the budget the player is permanently removed,
// which may empty and delete the room or degrade a playing room back to
// waiting with reset progress.
func (e *Engine) expireGrace(roomID, playerID string) {
	e.locks.lock(roomID)
	defer e.locks.unlock(roomID)

	for attempt := 0; attempt < saveRetries; attempt++ {
		room, err := e.db.LoadRoom(roomID)
		if err == persistence.ErrRecordNotFound {
			return
		}
		if err != nil {
			logger.Log.Errorf("Grace expiry for %s in room %s could not load room: %v",
				playerID, roomID, err)
			return
		}

		record, exists := room.Records[playerID]
		if !exists || record.Status == models.ConnStatusConnected {
			// Player reconnected (or was already removed) before expiry.
			return
		}

		if record.ReconnectAttempts < e.cfg.MaxReconnectAttempts {
			record.ReconnectAttempts++
			room.UpdatedAt = time.Now()
			if err := e.db.SaveRoom(room); err == persistence.ErrVersionConflict {
				continue
			} else if err != nil {
				logger.Log.Errorf("Grace expiry save failed for room %s: %v", roomID, err)
				return
			}
			e.armGraceTimer(roomID, playerID)
			return
		}

		e.removePlayer(room, playerID)

		if len(room.Players) == 0 {
			e.deleteRoom(room, Event{Type: network.MsgPlayerPermanentlyGone, PlayerID: playerID})
			return
		}

		if room.Status == models.StatusPlaying {
			if err := e.machine.Apply(room, models.StatusWaiting); err != nil {
				logger.Log.Errorf("Room %s refused degrade transition: %v", room.ID, err)
			}
			e.resetProgress(room)
		}

		room.UpdatedAt = time.Now()
		if err := e.db.SaveRoom(room); err == persistence.ErrVersionConflict {
			continue
		} else if err != nil {
			logger.Log.Errorf("Permanent removal save failed for room %s: %v", roomID, err)
			return
		}

		logger.Log.Infof("Player %s permanently removed from room %s", playerID, roomID)
		e.notifier.RoomUpdated(room, Event{Type: network.MsgPlayerPermanentlyGone, PlayerID: playerID})
		return
	}
	logger.Log.Errorf("Grace expiry for %s in room %s gave up after version conflicts",
		playerID, roomID)
}

func (e *Engine) removePlayer(room *models.Room, playerID string) {
	players := room.Players[:0]
	for _, id := range room.Players {
		if id != playerID {
			players = append(players, id)
		}
	}
	room.Players = players
	delete(room.Records, playerID)
	delete(room.Submitted, playerID)
	delete(room.Assignment, playerID)
}

// resetProgress returns a degraded room to a fresh waiting state.
func (e *Engine) resetProgress(room *models.Room) {
	room.CurrentSegment = 0
	room.Submitted = make(map[string]bool)
	room.Assignment = make(map[string]int)
	blank := e.compositor.Blank(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
	room.Canvases = [2]string{blank, blank}
	room.Peeks = [2]string{}
	room.History = newHistory(room.SegmentCount)
	room.FinalArtworks = nil
}

func (e *Engine) deleteRoom(room *models.Room, event Event) {
	e.supervisor.CancelRoom(room.ID)
	if err := e.db.DeleteRoom(room.ID); err != nil && err != persistence.ErrRecordNotFound {
		logger.Log.Errorf("Room %s delete failed: %v", room.ID, err)
		return
	}
	logger.Log.Infof("Room %s deleted", room.ID)
	e.notifier.RoomDeleted(room.ID, event)
}
