package state

import (
	"testing"

	"github.com/wfunc/drawserver/models"
)

func TestMachine_LifecycleTransitions(t *testing.T) {
	m := NewMachine()

	cases := []struct {
		from, to models.RoomStatus
		allowed  bool
	}{
		{models.StatusWaiting, models.StatusPlaying, true},
		{models.StatusPlaying, models.StatusCompleted, true},
		{models.StatusPlaying, models.StatusWaiting, true},
		{models.StatusWaiting, models.StatusCompleted, false},
		{models.StatusCompleted, models.StatusPlaying, false},
		{models.StatusCompleted, models.StatusWaiting, false},
		{models.StatusPlaying, models.StatusPlaying, true},
	}

	for _, c := range cases {
		if got := m.CanTransition(c.from, c.to); got != c.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestMachine_Apply(t *testing.T) {
	m := NewMachine()
	room := &models.Room{Status: models.StatusWaiting}

	if err := m.Apply(room, models.StatusPlaying); err != nil {
		t.Fatalf("Apply(waiting -> playing) returned error: %v", err)
	}
	if room.Status != models.StatusPlaying {
		t.Errorf("Expected status playing, got %s", room.Status)
	}

	err := m.Apply(room, models.StatusPlaying)
	if err != nil {
		t.Errorf("Self transition should be allowed, got %v", err)
	}

	if err := m.Apply(room, models.StatusCompleted); err != nil {
		t.Fatalf("Apply(playing -> completed) returned error: %v", err)
	}

	err = m.Apply(room, models.StatusPlaying)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, got %v", err)
	}
	if room.Status != models.StatusCompleted {
		t.Errorf("Status must not change on a blocked transition, got %s", room.Status)
	}
}

func TestTerminal(t *testing.T) {
	if Terminal(models.StatusWaiting) || Terminal(models.StatusPlaying) {
		t.Error("waiting and playing must not be terminal")
	}
	if !Terminal(models.StatusCompleted) {
		t.Error("completed must be terminal")
	}
}
