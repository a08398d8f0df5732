package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_FiresScheduledTask(t *testing.T) {
	m := newManagerWithTick(5 * time.Millisecond)
	defer m.Stop()

	var fired int32
	m.Schedule(10*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&fired) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("Expected task to fire once, fired %d times", atomic.LoadInt32(&fired))
	}
}

func TestManager_CancelPreventsFiring(t *testing.T) {
	m := newManagerWithTick(5 * time.Millisecond)
	defer m.Stop()

	var fired int32
	id := m.Schedule(50*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	if !m.Cancel(id) {
		t.Fatal("First cancel of a pending task should report true")
	}

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("Cancelled task must not fire")
	}
}

func TestManager_CancelIsIdempotent(t *testing.T) {
	m := newManagerWithTick(5 * time.Millisecond)
	defer m.Stop()

	id := m.Schedule(time.Hour, 0, func() {})

	if !m.Cancel(id) {
		t.Fatal("First cancel should succeed")
	}
	if m.Cancel(id) {
		t.Error("Second cancel of the same task should report false")
	}
	if m.Cancel(9999) {
		t.Error("Cancelling an unknown task should report false")
	}
}
