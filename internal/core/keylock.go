package core

import "sync"

// keyedLock serializes operations per identifier while letting
// operations on distinct identifiers proceed in parallel. Entries are
// reference counted and removed once the last holder releases, so the
// map does not grow with the number of identifiers ever seen.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{
		entries: make(map[string]*lockEntry),
	}
}

// lock acquires the exclusive section for the key and returns the
// matching release function.
func (l *keyedLock) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
