// room/locks.go
package room

import (
	"sync"
)

// keyedLocks serializes operations per room id. Entries are reference
// counted so idle rooms do not leak mutexes.
type keyedLocks struct {
	mutex sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

func (k *keyedLocks) lock(key string) {
	k.mutex.Lock()
	entry, exists := k.locks[key]
	if !exists {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mutex.Unlock()

	entry.mu.Lock()
}

func (k *keyedLocks) unlock(key string) {
	k.mutex.Lock()
	entry, exists := k.locks[key]
	if exists {
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mutex.Unlock()

	if exists {
		entry.mu.Unlock()
	}
}
