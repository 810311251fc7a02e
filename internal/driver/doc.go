// Package driver binds the record/replay driver's capability table.
//
// The driver is an external component that implements the actual recording
// and replaying engine. It exposes a fixed table of named entry points. This
// package resolves those names once, during single-threaded initialization,
// into a Driver value that the gateway calls through for the rest of the
// process lifetime.
//
// # Capability Table
//
// Every entry of Catalog is either required or optional:
//
//   - Required entries that cannot be resolved mean the driver build is
//     incompatible with this host. Bind reports them through the FatalFunc,
//     which terminates the process in production.
//   - Optional entries may be missing; the bound driver treats a nil entry as
//     "feature absent" and degrades the call to a no-op.
//
// The resulting Table is immutable after Bind returns, so concurrent reads
// need no synchronization.
//
// # Variants
//
// Callers depend on the Driver interface only:
//
//   - Absent returns safe defaults (false, zero, no-op) for every capability.
//     It is used when no driver module is present.
//   - Bound forwards every call to the resolved entry point.
//
// # Resolution
//
// A Resolver maps a symbol name to a value. MapResolver serves in-process
// drivers and tests; Open loads a Go plugin module and resolves its exported
// functions.
package driver
