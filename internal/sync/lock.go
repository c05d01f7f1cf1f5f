// Package sync guards pipeline processes against overlapping runs.
package sync

import (
	"log/slog"
	"sync"
)

// KeyLock manages named mutexes, one per process type
type KeyLock struct {
	locks sync.Map
}

// NewKeyLock creates a new KeyLock instance
func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

func (l *KeyLock) mutex(key string) *sync.Mutex {
	val, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	return val.(*sync.Mutex)
}

// Lock acquires the lock for key, blocking until it is free
func (l *KeyLock) Lock(key string) {
	l.mutex(key).Lock()
}

// Unlock releases the lock for key. Unlocking an unknown key is a no-op.
func (l *KeyLock) Unlock(key string) {
	val, ok := l.locks.Load(key)
	if !ok {
		return
	}
	val.(*sync.Mutex).Unlock()
}

// TryLock attempts to acquire the lock, returning true if successful
func (l *KeyLock) TryLock(key string) bool {
	return l.mutex(key).TryLock()
}

// Guard runs fn unless a run under the same key is already in progress.
// It reports whether fn ran. The key set is small and fixed, so entries
// are never evicted.
func (l *KeyLock) Guard(key string, fn func()) bool {
	if !l.TryLock(key) {
		slog.Warn("run already in progress, skipping", "process", key)
		return false
	}
	defer l.Unlock(key)
	fn()
	return true
}
