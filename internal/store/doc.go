// Package store provides SQLite-backed durable storage for record/replay journals.
//
// The store is the journal of the reference driver:
//   - Recordings: one row per recording, with build ID, dispatch target,
//     recorded command line, and lifecycle status
//   - Checkpoints: checkpoints taken while recording
//   - Events: recorded values, byte buffers, asserts and UI events
//   - Lock acquisitions: the order in which threads acquired each ordered lock
//
// # Critical Patterns
//
// Logical ordering:
//   - Every journal row carries a seq INTEGER from the recording's logical clock,
//     NEVER a timestamp
//   - Replay serves rows back in seq order, so a replay sees exactly the order
//     the recording produced
//
// Deterministic query results:
//   - All multi-row queries include ORDER BY seq ASC (or created_seq, id)
//   - Empty results are empty slices, not nil
//
// Idempotent writes:
//   - Inserts use ON CONFLICT DO NOTHING keyed by (recording_id, seq)
//
// Values are uintptr-sized and stored bit-for-bit in INTEGER columns.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
