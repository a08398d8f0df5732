package persistence

import (
	"testing"

	"github.com/wfunc/drawserver/models"
)

func newTestRoom(id, code string) *models.Room {
	return &models.Room{
		ID:      id,
		Code:    code,
		Status:  models.StatusWaiting,
		Records: map[string]*models.PlayerRecord{},
	}
}

func TestMemory_SaveAndLoadRoom(t *testing.T) {
	db := NewMemory()
	room := newTestRoom("room1", "AB12")

	if err := db.SaveRoom(room); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}
	if room.Version != 1 {
		t.Errorf("First save should set version 1, got %d", room.Version)
	}

	loaded, err := db.LoadRoom("room1")
	if err != nil {
		t.Fatalf("LoadRoom failed: %v", err)
	}
	if loaded.Code != "AB12" {
		t.Errorf("Expected code AB12, got %s", loaded.Code)
	}

	byCode, err := db.LoadRoomByCode("AB12")
	if err != nil {
		t.Fatalf("LoadRoomByCode failed: %v", err)
	}
	if byCode.ID != "room1" {
		t.Errorf("Expected room1, got %s", byCode.ID)
	}
}

func TestMemory_LoadUnknownRoom(t *testing.T) {
	db := NewMemory()

	if _, err := db.LoadRoom("missing"); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
	if _, err := db.LoadRoomByCode("ZZZZ"); err != ErrRecordNotFound {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemory_VersionConflict(t *testing.T) {
	db := NewMemory()
	room := newTestRoom("room1", "AB12")
	if err := db.SaveRoom(room); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}

	// Two writers load the same version.
	first, _ := db.LoadRoom("room1")
	second, _ := db.LoadRoom("room1")

	if err := db.SaveRoom(first); err != nil {
		t.Fatalf("First writer should succeed: %v", err)
	}
	if err := db.SaveRoom(second); err != ErrVersionConflict {
		t.Errorf("Second writer should hit ErrVersionConflict, got %v", err)
	}
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	db := NewMemory()
	room := newTestRoom("room1", "AB12")
	room.Records["p1"] = &models.PlayerRecord{DisplayName: "Alice", Status: models.ConnStatusConnected}
	if err := db.SaveRoom(room); err != nil {
		t.Fatalf("SaveRoom failed: %v", err)
	}

	loaded, _ := db.LoadRoom("room1")
	loaded.Records["p1"].DisplayName = "Mallory"

	again, _ := db.LoadRoom("room1")
	if again.Records["p1"].DisplayName != "Alice" {
		t.Error("Mutating a loaded document must not affect the store")
	}
}

func TestMemory_DeleteRoom(t *testing.T) {
	db := NewMemory()
	room := newTestRoom("room1", "AB12")
	db.SaveRoom(room)

	if err := db.DeleteRoom("room1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := db.LoadRoom("room1"); err != ErrRecordNotFound {
		t.Error("Deleted room should not be loadable")
	}
	exists, _ := db.CodeExists("AB12")
	if exists {
		t.Error("Deleting a room should free its code")
	}
	if err := db.DeleteRoom("room1"); err != ErrRecordNotFound {
		t.Errorf("Deleting twice should report ErrRecordNotFound, got %v", err)
	}
}

func TestMemory_DuplicateCode(t *testing.T) {
	db := NewMemory()
	db.SaveRoom(newTestRoom("room1", "AB12"))

	err := db.SaveRoom(newTestRoom("room2", "AB12"))
	if err != ErrDuplicateCode {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}
}

func TestMemory_Artworks(t *testing.T) {
	db := NewMemory()
	records := []models.ArtworkRecord{
		{RoomID: "room1", RoomCode: "AB12", Slot: 0, Image: "img0"},
		{RoomID: "room1", RoomCode: "AB12", Slot: 1, Image: "img1"},
	}
	if err := db.SaveArtworks(records); err != nil {
		t.Fatalf("SaveArtworks failed: %v", err)
	}

	loaded, err := db.LoadArtworks("AB12")
	if err != nil {
		t.Fatalf("LoadArtworks failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 artworks, got %d", len(loaded))
	}
}
