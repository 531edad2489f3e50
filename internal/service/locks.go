// internal/service/locks.go
package service

import (
	"sync"

	"github.com/google/uuid"
)

// LeadLocks hands out one mutex per lead. Every state-mutating path for
// a lead goes through it, and the orchestrator and the draft service
// must share a single instance so a manual generation can never race a
// scheduler trigger on the same (lead, touch) slot.
type LeadLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLeadLocks() *LeadLocks {
	return &LeadLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// For returns the mutex serializing operations on one lead.
func (l *LeadLocks) For(leadID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	lock, ok := l.locks[leadID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[leadID] = lock
	}
	return lock
}
