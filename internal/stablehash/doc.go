// Package stablehash implements the shadow structure that gives address-keyed
// hash tables replay-stable hash codes.
//
// A host hash table usually hashes by memory address, or by a function whose
// output differs between a recording and its replay. The shadow tracks every
// entry of such a table by a stable integer identity instead:
//
//   - Each table owns an arena of entry slots. A slot's index is the entry's
//     identity; it never changes while the entry lives.
//   - An address -> slot map is updated on every move notification, so
//     relocation preserves identity without relying on address equality.
//   - Stable hash codes are drawn from a per-table deterministic sequence, so
//     the same sequence of new keys yields the same codes in every run.
//
// # Lookup Protocol
//
//	code, found := shadow.Lookup(table, key, unstableCode)
//	if !found {
//	    // insert the real entry, then bind it to the pending shadow record
//	    shadow.AddEntryForLastLookup(table, entryAddr)
//	}
//
// A no-match lookup leaves exactly one pending record per table. Adding
// without a pending record is an error.
//
// Lookups probe the bucket of the caller's unstable hash code first and then
// fall back to a scan of live slots in identity order, so logically equal keys
// are found even when their unstable codes differ.
//
// The shadow adds no locking. Each table is single-writer under the host's
// existing discipline; a Shadow holding many tables must be guarded by its owner.
package stablehash
