package inventory

import (
	"sync"

	"readyrent/internal/domain/product"
)

// Locks serializes mutators of the same product's record. Acquisition is
// non-blocking: a contended lock fails fast instead of queueing, so a stuck
// holder cannot pile up requests behind it.
type Locks struct {
	mu    sync.Mutex
	locks map[product.ProductID]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[product.ProductID]*sync.Mutex)}
}

// TryAcquire attempts to take the per-product lock. On success it returns a
// release func; on contention it returns ErrLockContention and the caller
// must treat the failure as a conservative fallback, never as success.
func (l *Locks) TryAcquire(id product.ProductID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrLockContention
	}
	return m.Unlock, nil
}
