package driver

import (
	"sync"
	"sync/atomic"
)

// ThreadID identifies a gateway thread to the driver.
// IDs are minted by the gateway in thread creation order; the main thread is 1.
type ThreadID uint64

// MainThreadID is the ThreadID of the designated coordinating thread.
const MainThreadID ThreadID = 1

// DisallowedEventPrefix starts the assertion message the host sends for a
// recordable event observed while its thread disallowed events.
const DisallowedEventPrefix = "Disallowed event: "

// LockKind identifies a native synchronization primitive the driver can order.
type LockKind string

const (
	// LockKindPthreadMutex is a POSIX mutex.
	LockKindPthreadMutex LockKind = "pthread_mutex"

	// LockKindCriticalSection is a Windows critical section.
	LockKindCriticalSection LockKind = "critical_section"

	// LockKindSRWLock is a Windows slim reader/writer lock.
	LockKindSRWLock LockKind = "srw_lock"
)

// KeyEqualsEntry reports whether the lookup key equals the table entry stored
// at the given address. private is the value passed when the table was created.
type KeyEqualsEntry = func(private, key any, entry uintptr) bool

// Driver is the capability interface of a record/replay driver.
//
// One method per capability. Methods taking a ThreadID are thread-scoped: the
// driver uses the ID where a native driver would use the calling OS thread.
type Driver interface {
	Attach(dispatch, buildID string)
	SetAPIKey(key string)
	ProfileExecution(path string)
	AddProfilerEvent(event, json string)
	RecordCommandLineArguments(args []string) []string
	ProcessRecording()
	SaveRecording(dir string)
	RememberRecording()
	FinishRecording()
	InvalidateRecording(why string)
	IsReplaying() bool
	RecordingID() string
	IsRecordingCreated() bool
	WaitForRecordingCreated() bool

	RecordReplayValue(tid ThreadID, why string, value uintptr) uintptr
	RecordReplayBytes(tid ThreadID, why string, buf []byte)
	Assert(tid ThreadID, msg string)
	AssertBytes(tid ThreadID, why string, data []byte)
	Print(msg string)
	Diagnostic(msg string)
	NotifyActivity()

	RegisterThing(thing uintptr)
	UnregisterThing(thing uintptr)
	ThingIndex(thing uintptr) int
	IndexThing(id int) uintptr

	ProgressCounter() *atomic.Uint64
	SetProgressCallback(cb func(uint64))
	EnableProgressCheckpoints()
	ProgressReached()

	BeginPassThroughEvents(tid ThreadID)
	EndPassThroughEvents(tid ThreadID)
	BeginDisallowEvents(tid ThreadID)
	EndDisallowEvents(tid ThreadID)
	HasDivergedFromRecording() bool
	AllowSideEffects() bool

	NewCheckpoint()

	CreateOrderedLock(name string) int
	OrderedLock(tid ThreadID, lock int)
	OrderedUnlock(tid ThreadID, lock int)
	AddOrderedNativeLock(kind LockKind, name string, lock sync.Locker)

	OnMouseEvent(kind string, x, y int)
	OnKeyEvent(kind, key string)
	OnNavigationEvent(kind, url string)

	SetCrashReasonCallback(cb func() string)
	SetCrashNote(note string)

	NewStableHashTable(table uintptr, eq KeyEqualsEntry, private any)
	MoveStableHashTable(src, dst uintptr)
	DeleteStableHashTable(table uintptr)
	LookupStableHashCode(table uintptr, key any, unstable uint32) (uint32, bool)
	StableHashTableAddEntryForLastLookup(table, entry uintptr)
	StableHashTableMoveEntry(table, src, dst uintptr)
	StableHashTableDeleteEntry(table, entry uintptr)
}
