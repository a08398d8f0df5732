package session

import (
	"net"
	"testing"
	"time"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []interface{}
}

func (m *MockConnection) Send(v interface{}) error     { m.sent = append(m.sent, v); return nil }
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

func (m *MockConnection) SetHeartbeat(interval time.Duration) {}

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil || manager.byRoom == nil {
		t.Fatal("NewManager should initialize its maps")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := NewSession("session1", &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrieved, exists := manager.Get("session1")
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrieved != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove("session1")
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}
	if _, exists := manager.Get("session1"); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_Bind_IndexesByRoom(t *testing.T) {
	manager := NewManager()
	sess1 := NewSession("session1", &MockConnection{})
	sess2 := NewSession("session2", &MockConnection{})
	sess3 := NewSession("session3", &MockConnection{})
	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	manager.Bind("session1", "playerA", "room1")
	manager.Bind("session2", "playerB", "room1")
	manager.Bind("session3", "playerC", "room2")

	if got := len(manager.GetByRoom("room1")); got != 2 {
		t.Errorf("Expected 2 sessions in room1, got %d", got)
	}
	if got := len(manager.GetByRoom("room2")); got != 1 {
		t.Errorf("Expected 1 session in room2, got %d", got)
	}
	if got := len(manager.GetByRoom("room3")); got != 0 {
		t.Errorf("Expected 0 sessions in room3, got %d", got)
	}

	if sess1.PlayerID() != "playerA" || sess1.RoomID() != "room1" {
		t.Errorf("Bind should set player and room on the session, got %s/%s",
			sess1.PlayerID(), sess1.RoomID())
	}
}

func TestManager_Bind_MovesBetweenRooms(t *testing.T) {
	manager := NewManager()
	sess := NewSession("session1", &MockConnection{})
	manager.Add(sess)

	manager.Bind("session1", "playerA", "room1")
	manager.Bind("session1", "playerA", "room2")

	if got := len(manager.GetByRoom("room1")); got != 0 {
		t.Errorf("Expected old room index to be emptied, got %d sessions", got)
	}
	if got := len(manager.GetByRoom("room2")); got != 1 {
		t.Errorf("Expected 1 session in room2, got %d", got)
	}
}

func TestManager_GetByPlayer(t *testing.T) {
	manager := NewManager()
	sess1 := NewSession("session1", &MockConnection{})
	sess2 := NewSession("session2", &MockConnection{})
	manager.Add(sess1)
	manager.Add(sess2)
	manager.Bind("session1", "playerA", "room1")
	manager.Bind("session2", "playerB", "room1")

	found, exists := manager.GetByPlayer("room1", "playerB")
	if !exists {
		t.Fatal("GetByPlayer should find the bound session")
	}
	if found != sess2 {
		t.Error("GetByPlayer returned the wrong session")
	}

	if _, exists := manager.GetByPlayer("room1", "playerC"); exists {
		t.Error("GetByPlayer should not find an unbound player")
	}
}

func TestManager_Remove_CleansRoomIndex(t *testing.T) {
	manager := NewManager()
	sess := NewSession("session1", &MockConnection{})
	manager.Add(sess)
	manager.Bind("session1", "playerA", "room1")

	manager.Remove("session1")

	if got := len(manager.GetByRoom("room1")); got != 0 {
		t.Errorf("Expected room index to be cleaned on removal, got %d sessions", got)
	}
}
