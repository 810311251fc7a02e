package stablehash

import (
	"errors"
	"fmt"
)

// KeyEqualsEntry reports whether key equals the entry stored at address entry.
type KeyEqualsEntry = func(private, key any, entry uintptr) bool

var (
	// ErrUnknownTable is returned for operations on a table that was never created.
	ErrUnknownTable = errors.New("stablehash: unknown table")

	// ErrTableExists is returned when a table address is registered twice.
	ErrTableExists = errors.New("stablehash: table already exists")

	// ErrNoPendingLookup is returned when an entry is added without a
	// preceding no-match lookup.
	ErrNoPendingLookup = errors.New("stablehash: no pending lookup")

	// ErrUnknownEntry is returned for moves or deletes of untracked entries.
	ErrUnknownEntry = errors.New("stablehash: unknown entry")

	// ErrEntryExists is returned when an entry address is already tracked.
	ErrEntryExists = errors.New("stablehash: entry already tracked")
)

// LiveEntriesError is returned when a table is deleted while entries remain.
// The table is deleted regardless.
type LiveEntriesError struct {
	Table uintptr
	Live  int
}

func (e *LiveEntriesError) Error() string {
	return fmt.Sprintf("stablehash: table %#x deleted with %d live entries", e.Table, e.Live)
}

// slot is one entry identity in a table's arena.
type slot struct {
	addr     uintptr
	unstable uint32
	stable   uint32
	live     bool
}

type pending struct {
	stable   uint32
	unstable uint32
}

// table is the shadow of one host hash table.
type table struct {
	eq      KeyEqualsEntry
	private any

	arena   []slot
	byAddr  map[uintptr]int
	buckets map[uint32][]int
	live    int

	sequence uint32
	pending  *pending
}

// Shadow holds the shadow tables of a process, keyed by table address.
type Shadow struct {
	tables map[uintptr]*table
}

// New creates an empty Shadow.
func New() *Shadow {
	return &Shadow{tables: make(map[uintptr]*table)}
}

// NewTable starts tracking the table at addr.
func (s *Shadow) NewTable(addr uintptr, eq KeyEqualsEntry, private any) error {
	if _, ok := s.tables[addr]; ok {
		return fmt.Errorf("%w: %#x", ErrTableExists, addr)
	}
	s.tables[addr] = &table{
		eq:      eq,
		private: private,
		byAddr:  make(map[uintptr]int),
		buckets: make(map[uint32][]int),
	}
	return nil
}

// MoveTable re-keys a table after the host relocated it.
func (s *Shadow) MoveTable(src, dst uintptr) error {
	t, ok := s.tables[src]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownTable, src)
	}
	if _, ok := s.tables[dst]; ok && dst != src {
		return fmt.Errorf("%w: %#x", ErrTableExists, dst)
	}
	delete(s.tables, src)
	s.tables[dst] = t
	return nil
}

// DeleteTable stops tracking a table.
// Returns a *LiveEntriesError if entries were never moved out or deleted.
func (s *Shadow) DeleteTable(addr uintptr) error {
	t, ok := s.tables[addr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownTable, addr)
	}
	delete(s.tables, addr)
	if t.live > 0 {
		return &LiveEntriesError{Table: addr, Live: t.live}
	}
	return nil
}

// Lookup returns the stable hash code for key.
//
// If an entry equal to key is tracked, its stable code is returned with
// found=true. Otherwise a new stable code is minted and left pending for
// AddEntryForLastLookup.
func (s *Shadow) Lookup(addr uintptr, key any, unstable uint32) (uint32, bool, error) {
	t, ok := s.tables[addr]
	if !ok {
		return 0, false, fmt.Errorf("%w: %#x", ErrUnknownTable, addr)
	}

	if idx, ok := t.find(key, unstable); ok {
		t.pending = nil
		return t.arena[idx].stable, true, nil
	}

	t.sequence++
	code := mix(t.sequence)
	t.pending = &pending{stable: code, unstable: unstable}
	return code, false, nil
}

// AddEntryForLastLookup binds the entry at addr to the record created by the
// table's most recent no-match lookup.
func (s *Shadow) AddEntryForLastLookup(tableAddr, entry uintptr) error {
	t, ok := s.tables[tableAddr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownTable, tableAddr)
	}
	if t.pending == nil {
		return ErrNoPendingLookup
	}
	if _, ok := t.byAddr[entry]; ok {
		return fmt.Errorf("%w: %#x", ErrEntryExists, entry)
	}

	idx := len(t.arena)
	t.arena = append(t.arena, slot{
		addr:     entry,
		unstable: t.pending.unstable,
		stable:   t.pending.stable,
		live:     true,
	})
	t.byAddr[entry] = idx
	t.buckets[t.pending.unstable] = append(t.buckets[t.pending.unstable], idx)
	t.live++
	t.pending = nil
	return nil
}

// MoveEntry records that an entry was relocated from src to dst.
func (s *Shadow) MoveEntry(tableAddr, src, dst uintptr) error {
	t, ok := s.tables[tableAddr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownTable, tableAddr)
	}
	idx, ok := t.byAddr[src]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownEntry, src)
	}
	if src == dst {
		return nil
	}
	if _, ok := t.byAddr[dst]; ok {
		return fmt.Errorf("%w: %#x", ErrEntryExists, dst)
	}
	delete(t.byAddr, src)
	t.byAddr[dst] = idx
	t.arena[idx].addr = dst
	return nil
}

// DeleteEntry stops tracking the entry at addr.
func (s *Shadow) DeleteEntry(tableAddr, entry uintptr) error {
	t, ok := s.tables[tableAddr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownTable, tableAddr)
	}
	idx, ok := t.byAddr[entry]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownEntry, entry)
	}
	delete(t.byAddr, entry)
	sl := &t.arena[idx]
	sl.live = false
	t.buckets[sl.unstable] = removeIndex(t.buckets[sl.unstable], idx)
	if len(t.buckets[sl.unstable]) == 0 {
		delete(t.buckets, sl.unstable)
	}
	t.live--
	return nil
}

// Live returns the number of live entries of a table, or -1 if unknown.
func (s *Shadow) Live(addr uintptr) int {
	t, ok := s.tables[addr]
	if !ok {
		return -1
	}
	return t.live
}

// Tables returns the number of tracked tables.
func (s *Shadow) Tables() int {
	return len(s.tables)
}

// find probes the unstable-code bucket, then scans live slots in identity order.
func (t *table) find(key any, unstable uint32) (int, bool) {
	for _, idx := range t.buckets[unstable] {
		if t.eq(t.private, key, t.arena[idx].addr) {
			return idx, true
		}
	}
	for idx := range t.arena {
		sl := &t.arena[idx]
		if !sl.live || sl.unstable == unstable {
			continue
		}
		if t.eq(t.private, key, sl.addr) {
			return idx, true
		}
	}
	return 0, false
}

func removeIndex(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// mix spreads a sequence number over the 32-bit code space (murmur3 finalizer).
func mix(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}
