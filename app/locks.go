package app

import "sync"

// userLocks provides per-user mutual exclusion around read-modify-write
// spans. Store adapters stay free of transactional requirements; the
// services serialize concurrent calls for the same user here. Entries
// are never evicted; the per-user footprint is one mutex.
type userLocks struct {
	locks sync.Map // user id -> *sync.Mutex
}

func (l *userLocks) lock(userID string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m
}
