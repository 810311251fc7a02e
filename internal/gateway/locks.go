package gateway

import (
	"sync"

	"github.com/roach88/rrgate/internal/driver"
)

// OrderedLock is a handle whose acquisitions the driver orders identically
// while recording and replaying. The zero handle is never minted.
type OrderedLock int

// CreateOrderedLock mints a handle for one synchronization primitive. Call it
// once per primitive and cache the result; each call mints a fresh handle.
//
// With a driver the driver assigns the handle. Without one the gateway mints
// local handles, so distinct primitives still get distinct handles.
func (g *Gateway) CreateOrderedLock(name string) OrderedLock {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()

	var h OrderedLock
	if g.table != nil {
		h = OrderedLock(g.drv.CreateOrderedLock(name))
	} else {
		g.localLocks++
		h = OrderedLock(g.localLocks)
	}
	g.lockNames[h] = name
	g.metrics.locksCreated.Inc()
	return h
}

// LockName returns the name a handle was created with, or "".
func (g *Gateway) LockName(h OrderedLock) string {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()
	return g.lockNames[h]
}

// OrderedLock acquires h in the driver's total order. Without a driver it is
// a no-op.
func (t *Thread) OrderedLock(h OrderedLock) {
	t.g.drv.OrderedLock(t.id, int(h))
	t.g.metrics.lockAcquisitions.Inc()
}

// OrderedUnlock releases h.
func (t *Thread) OrderedUnlock(h OrderedLock) {
	t.g.drv.OrderedUnlock(t.id, int(h))
}

// AddOrderedNativeLock lets the driver order a native lock's acquisitions,
// without rewriting its call sites. Only while recording or replaying.
func (g *Gateway) AddOrderedNativeLock(kind driver.LockKind, name string, lock sync.Locker) {
	if g.recordingOrReplaying {
		g.rr.AddOrderedNativeLock(kind, name, lock)
	}
}

// OrderedMutex is a mutex whose acquisition order is recorded and replayed.
type OrderedMutex struct {
	mu     sync.Mutex
	handle OrderedLock
	name   string
}

// NewOrderedMutex creates a mutex with a fresh ordered lock handle.
func (g *Gateway) NewOrderedMutex(name string) *OrderedMutex {
	return &OrderedMutex{handle: g.CreateOrderedLock(name), name: name}
}

// Lock acquires m for t: first the ordered handle, then the mutex.
func (m *OrderedMutex) Lock(t *Thread) {
	t.OrderedLock(m.handle)
	m.mu.Lock()
}

// Unlock releases m in reverse order.
func (m *OrderedMutex) Unlock(t *Thread) {
	m.mu.Unlock()
	t.OrderedUnlock(m.handle)
}

func (m *OrderedMutex) Handle() OrderedLock { return m.handle }
func (m *OrderedMutex) Name() string        { return m.name }
