package refdriver

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/store"
)

// orderedLock is the driver-side state of one ordered lock handle.
//
// The driver holds its own exclusion around each ordered lock: OrderedLock
// blocks while another thread owns the handle. When replaying, it also blocks
// until the caller is the next recorded owner.
type orderedLock struct {
	name  string
	held  bool
	owner driver.ThreadID

	order []driver.ThreadID
	pos   int
}

// lockLocked returns the state of handle id, growing the table as needed.
// Caller must hold lockMu (or be constructing the driver).
func (d *Driver) lockLocked(id int) *orderedLock {
	for len(d.locks) < id {
		d.locks = append(d.locks, &orderedLock{})
	}
	return d.locks[id-1]
}

// CreateOrderedLock mints the next handle. Handles start at 1 and are
// assigned in creation order.
func (d *Driver) CreateOrderedLock(name string) int {
	d.lockMu.Lock()
	id := 0
	for i, l := range d.locks {
		// Replay pre-creates handles from the journal; claim them in order.
		if l.name == "" {
			l.name = name
			id = i + 1
			break
		}
	}
	if id == 0 {
		d.locks = append(d.locks, &orderedLock{name: name})
		id = len(d.locks)
	}
	d.lockMu.Unlock()

	d.observe(Call{Name: driver.SymCreateOrderedLock, Args: []any{name, id}})
	return id
}

// OrderedLock acquires handle id for tid.
func (d *Driver) OrderedLock(tid driver.ThreadID, id int) {
	d.observe(Call{Name: driver.SymOrderedLock, Thread: tid, Args: []any{id}})
	if id <= 0 {
		return
	}

	d.lockMu.Lock()
	l := d.lockLocked(id)
	for {
		if l.held {
			d.lockCond.Wait()
			continue
		}
		if d.replaying() && !d.diverged.Load() {
			if l.pos >= len(l.order) {
				if d.setDiverged(fmt.Sprintf("lock %d (%s) acquired by thread %d more often than recorded", id, l.name, tid)) {
					d.lockCond.Broadcast()
				}
				break
			}
			if l.order[l.pos] != tid {
				d.lockCond.Wait()
				continue
			}
		}
		break
	}
	l.held = true
	l.owner = tid

	var seq int64
	if d.replaying() {
		if l.pos < len(l.order) {
			l.pos++
		}
	} else {
		seq = d.clock.Next()
	}
	name := l.name
	d.lockMu.Unlock()

	if seq != 0 {
		d.journalLock(store.LockAcquisition{Seq: seq, LockID: id, LockName: name, ThreadID: uint64(tid)})
	}
}

// OrderedUnlock releases handle id.
func (d *Driver) OrderedUnlock(tid driver.ThreadID, id int) {
	d.observe(Call{Name: driver.SymOrderedUnlock, Thread: tid, Args: []any{id}})
	if id <= 0 {
		return
	}

	d.lockMu.Lock()
	l := d.lockLocked(id)
	if l.held && l.owner == tid {
		l.held = false
		l.owner = 0
		d.lockCond.Broadcast()
	}
	d.lockMu.Unlock()
}

func (d *Driver) journalLock(acq store.LockAcquisition) {
	if !d.journaling() {
		return
	}
	acq.RecordingID = d.recordingID
	if err := d.store.WriteLockAcquisition(context.Background(), acq); err != nil {
		d.journalError(err)
	}
}

// LockName returns the name of handle id, or "".
func (d *Driver) LockName(id int) string {
	d.lockMu.Lock()
	defer d.lockMu.Unlock()
	if id <= 0 || id > len(d.locks) {
		return ""
	}
	return d.locks[id-1].name
}

// addNativeLock returns the registration entry point for one native lock kind.
func (d *Driver) addNativeLock(kind driver.LockKind) func(string, sync.Locker) {
	return func(name string, _ sync.Locker) {
		d.observe(Call{Name: nativeLockName(kind), Args: []any{name}})
		d.mu.Lock()
		d.nativeLocks[name] = kind
		d.mu.Unlock()
	}
}

// AddOrderedNativeLock registers a native lock by name.
func (d *Driver) AddOrderedNativeLock(kind driver.LockKind, name string, lock sync.Locker) {
	d.addNativeLock(kind)(name, lock)
}

// NativeLocks returns the registered native locks by name.
func (d *Driver) NativeLocks() map[string]driver.LockKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]driver.LockKind, len(d.nativeLocks))
	for k, v := range d.nativeLocks {
		out[k] = v
	}
	return out
}

func nativeLockName(kind driver.LockKind) string {
	name, _ := driver.NativeLockSymbol(kind)
	return name
}
