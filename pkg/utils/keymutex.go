package utils

import "sync"

// KeyedMutex provides one mutex per string key. It serializes multi-step
// read-modify-write sequences that share a key (e.g. all ledger mutations for
// one owner) without introducing cross-key contention.
//
// Locks are never evicted; the expected key cardinality is bounded by the
// active user population of a single process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
