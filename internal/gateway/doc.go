// Package gateway is the host's single point of contact with a record/replay
// driver.
//
// A process that is not recording runs natively: every gateway call is a
// cheap no-op or returns its safe default. When the command line carries the
// dispatch argument, Initialize loads the driver, binds its capability table,
// and from then on forwards the host's recordable events to it.
//
// CRITICAL PATTERNS:
//
// Threads:
// Go has no OS thread identity, so each host thread of control is an explicit
// *Thread. Pass-through and disallow scopes nest per Thread, and the driver
// sees the Thread's ID on every thread-scoped call. The main thread (ID 1) is
// the only one that keeps crash notes and drives checkpoints.
//
// Fatal errors:
// Programming errors (unbalanced scopes, popping an empty crash note stack,
// using a deleted stable hash table, a required capability missing from the
// driver) are never returned. They become the crash reason and run the
// Terminator. A Terminator that returns makes the gateway panic with
// ErrTerminatorReturned.
//
// Notices:
// The control channel hears, at most once each, that recording is
// unsupported and that the recording became unusable, and hears when the
// recording finished.
package gateway
