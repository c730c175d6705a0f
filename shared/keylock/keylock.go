package keylock

import "sync"

// KeyedMutex serializes critical sections per key. Different keys proceed
// independently; callers on the same key queue behind one another.
//
// Entries are reference-counted and removed once the last holder releases,
// so the map does not grow with the keyspace.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{
		locks: map[string]*entry{},
	}
}

// Lock acquires the mutex for key and returns the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()

	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}

	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()

		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}

		k.mu.Unlock()
	}
}

// LockAll acquires every key in the given order and returns a single unlock
// function releasing them in reverse. Callers must pass keys pre-sorted so
// overlapping sets cannot deadlock.
func (k *KeyedMutex) LockAll(keys []string) func() {
	unlocks := make([]func(), 0, len(keys))

	for _, key := range keys {
		unlocks = append(unlocks, k.Lock(key))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
