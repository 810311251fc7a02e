package gateway

import (
	"fmt"

	"github.com/roach88/rrgate/internal/driver"
)

// StableHashTable is the gateway handle of a host hash table whose hash codes
// must match between recording and replay.
//
// A StableHashTable is not safe for concurrent use; the host table's own
// locking serializes its calls. While not recording or replaying every method
// is a no-op, except LookupHashCode, which must not be called then.
type StableHashTable struct {
	g       *Gateway
	addr    uintptr
	deleted bool
	live    int

	// lookups counts lookups; armed is the count of the last no-match lookup
	// not yet consumed, or 0.
	lookups uint64
	armed   uint64
}

// Lookup is the result of one LookupHashCode call. A no-match Lookup is the
// one-shot token AddEntryForLastLookup consumes.
type Lookup struct {
	// Code is the stable hash code to use for the key.
	Code uint32

	// Found reports whether an equal entry already exists.
	Found bool

	table *StableHashTable
	seq   uint64
}

// NewStableHashTable registers the host table at addr. eq compares a lookup
// key with an entry; private is passed back to it.
func (g *Gateway) NewStableHashTable(addr uintptr, eq driver.KeyEqualsEntry, private any) *StableHashTable {
	t := &StableHashTable{g: g, addr: addr}
	if g.recordingOrReplaying {
		g.rr.NewStableHashTable(addr, eq, private)
	}
	return t
}

// Addr returns the table's current address.
func (t *StableHashTable) Addr() uintptr { return t.addr }

// Live returns the number of entries added and not deleted.
func (t *StableHashTable) Live() int { return t.live }

func (t *StableHashTable) active(op string) bool {
	if t.deleted {
		t.g.fatal(&FatalError{Code: CodeTableDeleted, Message: fmt.Sprintf("%s on deleted stable hash table %#x", op, t.addr)})
		return false
	}
	return t.g.recordingOrReplaying
}

// Move records that the table moved to dst.
func (t *StableHashTable) Move(dst uintptr) {
	if !t.active("Move") {
		return
	}
	t.g.rr.MoveStableHashTable(t.addr, dst)
	t.addr = dst
}

// Delete deletes the table. Every entry must have been deleted first; live
// entries invalidate the recording.
func (t *StableHashTable) Delete() {
	if !t.active("Delete") {
		t.deleted = true
		return
	}
	t.deleted = true
	if t.live > 0 {
		t.g.InvalidateRecording(fmt.Sprintf("stable hash table %#x deleted with %d live entries", t.addr, t.live))
	}
	t.g.rr.DeleteStableHashTable(t.addr)
}

// LookupHashCode returns the stable hash code for key, given the host's own
// unstable hash code for it. Call it right after the host's own lookup.
//
// A no-match result arms the table: the next AddEntryForLastLookup must
// consume it. Calling LookupHashCode while not recording or replaying is a
// fatal programming error.
func (t *StableHashTable) LookupHashCode(key any, unstable uint32) Lookup {
	if t.deleted {
		t.active("LookupHashCode")
		return Lookup{Code: unstable}
	}
	if !t.g.recordingOrReplaying {
		t.g.fatal(&FatalError{Code: CodeInactiveLookup, Message: fmt.Sprintf("stable hash lookup on %#x while not recording or replaying", t.addr)})
		return Lookup{Code: unstable}
	}

	code, found := t.g.rr.LookupStableHashCode(t.addr, key, unstable)
	t.lookups++
	l := Lookup{Code: code, Found: found, table: t, seq: t.lookups}
	if found {
		t.armed = 0
		t.g.metrics.hashLookups.WithLabelValues("found").Inc()
	} else {
		t.armed = l.seq
		t.g.metrics.hashLookups.WithLabelValues("miss").Inc()
	}
	return l
}

// AddEntryForLastLookup binds the entry the host just inserted at entry to
// the no-match lookup l. Exactly one add is accepted per no-match lookup, and
// only for the table's most recent lookup.
func (t *StableHashTable) AddEntryForLastLookup(l Lookup, entry uintptr) error {
	if !t.active("AddEntryForLastLookup") {
		return nil
	}
	switch {
	case l.table != t:
		return ErrForeignLookup
	case l.Found:
		return ErrLookupMatched
	case l.seq != t.armed:
		return ErrStaleLookup
	}
	t.armed = 0
	t.g.rr.StableHashTableAddEntryForLastLookup(t.addr, entry)
	t.live++
	return nil
}

// MoveEntry records that an entry moved from src to dst.
func (t *StableHashTable) MoveEntry(src, dst uintptr) {
	if t.active("MoveEntry") {
		t.g.rr.StableHashTableMoveEntry(t.addr, src, dst)
	}
}

// DeleteEntry records that the entry at addr was removed.
func (t *StableHashTable) DeleteEntry(entry uintptr) {
	if !t.active("DeleteEntry") {
		return
	}
	t.g.rr.StableHashTableDeleteEntry(t.addr, entry)
	if t.live > 0 {
		t.live--
	}
}
