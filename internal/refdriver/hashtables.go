package refdriver

import (
	"errors"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/stablehash"
)

// Stable hash table capabilities. The shadow reports protocol errors; the
// driver logs them, and live entries at table deletion invalidate the
// recording.

func (d *Driver) NewStableHashTable(table uintptr, eq driver.KeyEqualsEntry, private any) {
	d.observe(Call{Name: driver.SymNewStableHashTable, Args: []any{table}})
	d.shadowMu.Lock()
	err := d.shadow.NewTable(table, eq, private)
	d.shadowMu.Unlock()
	d.hashTableError("new table", err)
}

func (d *Driver) MoveStableHashTable(src, dst uintptr) {
	d.observe(Call{Name: driver.SymMoveStableHashTable, Args: []any{src, dst}})
	d.shadowMu.Lock()
	err := d.shadow.MoveTable(src, dst)
	d.shadowMu.Unlock()
	d.hashTableError("move table", err)
}

func (d *Driver) DeleteStableHashTable(table uintptr) {
	d.observe(Call{Name: driver.SymDeleteStableHashTable, Args: []any{table}})
	d.shadowMu.Lock()
	err := d.shadow.DeleteTable(table)
	d.shadowMu.Unlock()

	var live *stablehash.LiveEntriesError
	if errors.As(err, &live) {
		d.invalidate(err.Error())
	}
	d.hashTableError("delete table", err)
}

func (d *Driver) LookupStableHashCode(table uintptr, key any, unstable uint32) (uint32, bool) {
	d.shadowMu.Lock()
	code, found, err := d.shadow.Lookup(table, key, unstable)
	d.shadowMu.Unlock()
	d.observe(Call{Name: driver.SymLookupStableHashCode, Args: []any{table, unstable, code, found}})
	if err != nil {
		d.hashTableError("lookup", err)
		return unstable, false
	}
	return code, found
}

func (d *Driver) StableHashTableAddEntryForLastLookup(table, entry uintptr) {
	d.observe(Call{Name: driver.SymStableHashTableAddEntry, Args: []any{table, entry}})
	d.shadowMu.Lock()
	err := d.shadow.AddEntryForLastLookup(table, entry)
	d.shadowMu.Unlock()
	d.hashTableError("add entry", err)
}

func (d *Driver) StableHashTableMoveEntry(table, src, dst uintptr) {
	d.observe(Call{Name: driver.SymStableHashTableMoveEntry, Args: []any{table, src, dst}})
	d.shadowMu.Lock()
	err := d.shadow.MoveEntry(table, src, dst)
	d.shadowMu.Unlock()
	d.hashTableError("move entry", err)
}

func (d *Driver) StableHashTableDeleteEntry(table, entry uintptr) {
	d.observe(Call{Name: driver.SymStableHashTableDeleteEntry, Args: []any{table, entry}})
	d.shadowMu.Lock()
	err := d.shadow.DeleteEntry(table, entry)
	d.shadowMu.Unlock()
	d.hashTableError("delete entry", err)
}

func (d *Driver) hashTableError(op string, err error) {
	if err != nil {
		d.logger.Warn("stable hash table", "op", op, "error", err)
	}
}

// LiveHashEntries returns the live entry count of a table, or -1 if unknown.
func (d *Driver) LiveHashEntries(table uintptr) int {
	d.shadowMu.Lock()
	defer d.shadowMu.Unlock()
	return d.shadow.Live(table)
}
