package broadcast

import (
	"reflect"
	"testing"

	"github.com/wfunc/drawserver/models"
)

func playingRoom() *models.Room {
	return &models.Room{
		ID:      "room1",
		Code:    "AB12",
		Status:  models.StatusPlaying,
		Players: []string{"playerA", "playerB"},
		Records: map[string]*models.PlayerRecord{
			"playerA": {DisplayName: "Alice", Status: models.ConnStatusConnected},
			"playerB": {DisplayName: "Bob", Status: models.ConnStatusConnected},
		},
		SegmentCount:   4,
		CurrentSegment: 0,
		Submitted:      map[string]bool{},
		Assignment:     map[string]int{"playerA": 0, "playerB": 1},
		Canvases:       [2]string{"canvas0", "canvas1"},
	}
}

func TestBuildView_BothCanDrawAtStart(t *testing.T) {
	room := playingRoom()

	for _, playerID := range []string{"playerA", "playerB"} {
		view := BuildView(room, playerID)
		if !view.CanDraw {
			t.Errorf("%s should be able to draw at segment 0", playerID)
		}
		if view.IsWaitingForOthers {
			t.Errorf("%s should not be waiting at segment 0", playerID)
		}
	}

	if got := BuildView(room, "playerA").CanvasData; got != "canvas0" {
		t.Errorf("playerA should see canvas slot 0, got %s", got)
	}
	if got := BuildView(room, "playerB").CanvasData; got != "canvas1" {
		t.Errorf("playerB should see canvas slot 1, got %s", got)
	}
}

func TestBuildView_SubmitterWaits(t *testing.T) {
	room := playingRoom()
	room.Submitted["playerA"] = true

	viewA := BuildView(room, "playerA")
	if viewA.CanDraw || !viewA.IsWaitingForOthers {
		t.Errorf("Submitter should wait, got canDraw=%v waiting=%v",
			viewA.CanDraw, viewA.IsWaitingForOthers)
	}

	viewB := BuildView(room, "playerB")
	if !viewB.CanDraw || viewB.IsWaitingForOthers {
		t.Errorf("Other player should still draw, got canDraw=%v waiting=%v",
			viewB.CanDraw, viewB.IsWaitingForOthers)
	}
}

func TestBuildView_PeekAfterAdvance(t *testing.T) {
	room := playingRoom()
	room.CurrentSegment = 1
	room.Assignment = map[string]int{"playerA": 1, "playerB": 0}
	room.Peeks = [2]string{"peek0", "peek1"}

	view := BuildView(room, "playerA")
	if view.CanvasData != "peek1" {
		t.Errorf("Fresh drawer should see the peek of their new slot, got %s", view.CanvasData)
	}

	// Once submitted, the full canvas is shown again.
	room.Submitted["playerA"] = true
	view = BuildView(room, "playerA")
	if view.CanvasData != "canvas1" {
		t.Errorf("Submitter should see the full canvas, got %s", view.CanvasData)
	}
}

func TestBuildView_WaitingRoom(t *testing.T) {
	room := playingRoom()
	room.Status = models.StatusWaiting
	room.Players = []string{"playerA"}
	room.Assignment = map[string]int{}

	view := BuildView(room, "playerA")
	if view.CanDraw || view.IsWaitingForOthers {
		t.Error("Nobody draws in a waiting room")
	}
	if view.PlayerCount != 1 {
		t.Errorf("Expected player count 1, got %d", view.PlayerCount)
	}
	if view.Message == "" {
		t.Error("View should always carry a status message")
	}
}

func TestBuildView_CompletedRoom(t *testing.T) {
	room := playingRoom()
	room.Status = models.StatusCompleted
	room.CurrentSegment = 4
	room.FinalArtworks = []string{"final0", "final1"}

	view := BuildView(room, "playerA")
	if view.CanDraw {
		t.Error("Nobody draws in a completed room")
	}
	if len(view.FinalArtworks) != 2 {
		t.Errorf("Completed view should carry both composites, got %d", len(view.FinalArtworks))
	}
}

func TestBuildView_IsDeterministic(t *testing.T) {
	room := playingRoom()
	room.Submitted["playerB"] = true

	first := BuildView(room, "playerB")
	second := BuildView(room, "playerB")
	if !reflect.DeepEqual(first, second) {
		t.Error("BuildView must be a pure function of the snapshot")
	}
}
